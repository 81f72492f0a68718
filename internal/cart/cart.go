// Package cart holds the device-local shopping cart of the terminal client.
package cart

import (
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/sambamart/storefront/internal/domain/catalog"
)

// Item is a cart line. Price is the product price seen when the item was
// added and is used for display only; the server prices orders itself.
type Item struct {
	ProductID int64
	Name      string
	ImageURL  string
	Price     int64
	Quantity  int
}

// State is the persisted cart state.
type State struct {
	Items  []Item
	IsOpen bool
}

// Persister loads and saves cart state.
type Persister interface {
	Load() (State, error)
	Save(State) error
	// Remove deletes the persisted state. Removing missing state is not an
	// error.
	Remove() error
}

// Store is a cart with at most one item per product. Every mutation is
// serialized and saved through the Persister before it returns.
type Store struct {
	mu      sync.Mutex
	items   []Item
	open    bool
	persist Persister
}

// New returns an empty Store. A nil Persister keeps the cart in memory.
func New(p Persister) *Store {
	return &Store{persist: p}
}

// Open returns a Store restored from p.
func Open(p Persister) (*Store, error) {
	st, err := p.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	s := New(p)
	s.items = normalize(st.Items)
	s.open = st.IsOpen
	return s, nil
}

// normalize merges duplicate products and drops non-positive quantities so
// a hand-edited state file cannot break the cart invariants.
func normalize(items []Item) []Item {
	var out []Item
	for _, it := range items {
		if it.Quantity < 1 {
			continue
		}
		if i := slices.IndexFunc(out, func(o Item) bool { return o.ProductID == it.ProductID }); i >= 0 {
			out[i].Quantity += it.Quantity
			continue
		}
		out = append(out, it)
	}
	return out
}

func (s *Store) index(productID int64) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ProductID == productID })
}

// save persists the current state. Callers hold s.mu.
func (s *Store) save() error {
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Save(State{Items: slices.Clone(s.items), IsOpen: s.open}); err != nil {
		return errors.Wrap(err, "save cart")
	}
	return nil
}

// AddItem adds one unit of p. An existing line is incremented, otherwise a
// new line copies the product's name, price and image. Stock is not checked.
func (s *Store) AddItem(p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(p.ID); i >= 0 {
		s.items[i].Quantity++
	} else {
		s.items = append(s.items, Item{
			ProductID: p.ID,
			Name:      p.Name,
			ImageURL:  p.ImageURL,
			Price:     p.Price,
			Quantity:  1,
		})
	}
	return s.save()
}

// RemoveItem deletes the line for productID, if any.
func (s *Store) RemoveItem(productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(productID)
	return s.save()
}

func (s *Store) removeLocked(productID int64) {
	s.items = slices.DeleteFunc(s.items, func(it Item) bool { return it.ProductID == productID })
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line. Unknown products are ignored.
func (s *Store) UpdateQuantity(productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
	} else if i := s.index(productID); i >= 0 {
		s.items[i].Quantity = quantity
	}
	return s.save()
}

// ClearCart removes every line. Visibility is unchanged.
func (s *Store) ClearCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return s.save()
}

// ToggleCart flips the cart visibility.
func (s *Store) ToggleCart() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = !s.open
	return s.save()
}

// SetOpen sets the cart visibility.
func (s *Store) SetOpen(open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = open
	return s.save()
}

// Reset empties the cart, closes it and deletes the persisted state.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.open = false
	if s.persist == nil {
		return nil
	}
	if err := s.persist.Remove(); err != nil {
		return errors.Wrap(err, "remove cart")
	}
	return nil
}

// Items returns a copy of the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Total is the sum of price times quantity over all lines.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total int64
	for _, it := range s.items {
		total += it.Price * int64(it.Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// IsOpen reports the cart visibility.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
