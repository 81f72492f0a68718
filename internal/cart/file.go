package cart

import (
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// DefaultNamespace names the state file of the default cart.
const DefaultNamespace = "sambamart-cart"

// FilePersister stores cart state as JSON in <Dir>/<Namespace>.json.
type FilePersister struct {
	Dir       string
	Namespace string
}

// NewFilePersister returns a FilePersister for the default namespace.
func NewFilePersister(dir string) *FilePersister {
	return &FilePersister{Dir: dir, Namespace: DefaultNamespace}
}

// Path returns the state file path.
func (p *FilePersister) Path() string {
	ns := p.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return filepath.Join(p.Dir, ns+".json")
}

// Load reads the state file. A missing file is an empty cart.
func (p *FilePersister) Load() (State, error) {
	data, err := os.ReadFile(p.Path())
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, errors.Wrap(err, "read")
	}
	st, err := decodeState(data)
	if err != nil {
		return State{}, errors.Wrapf(err, "decode %s", p.Path())
	}
	return st, nil
}

// Save replaces the state file atomically.
func (p *FilePersister) Save(st State) error {
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return errors.Wrap(err, "create state dir")
	}

	tmp, err := os.CreateTemp(p.Dir, ".cart-*")
	if err != nil {
		return errors.Wrap(err, "create temp")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(encodeState(st)); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close")
	}
	if err := os.Rename(tmp.Name(), p.Path()); err != nil {
		return errors.Wrap(err, "rename")
	}
	return nil
}

// Remove deletes the state file.
func (p *FilePersister) Remove() error {
	if err := os.Remove(p.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove")
	}
	return nil
}

func encodeState(st State) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range st.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.Int64(it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("imageUrl")
		e.Str(it.ImageURL)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("isOpen")
	e.Bool(st.IsOpen)
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func decodeState(data []byte) (State, error) {
	var st State
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			if d.Next() == jx.Null {
				return d.Null()
			}
			return d.Arr(func(d *jx.Decoder) error {
				var it Item
				if err := it.decode(d); err != nil {
					return err
				}
				st.Items = append(st.Items, it)
				return nil
			})
		case "isOpen":
			v, err := d.Bool()
			st.IsOpen = v
			return err
		default:
			return d.Skip()
		}
	})
	return st, err
}

func (it *Item) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			it.ProductID, err = d.Int64()
		case "name":
			it.Name, err = d.Str()
		case "price":
			it.Price, err = d.Int64()
		case "quantity":
			it.Quantity, err = d.Int()
		case "imageUrl":
			it.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}
