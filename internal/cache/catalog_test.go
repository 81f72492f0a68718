package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambamart/storefront/internal/domain/catalog"
)

// --- Mock implementations ---

type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

type countingReader struct {
	products   []catalog.Product
	categories []catalog.Category
	calls      atomic.Int32
	// gate, when set, blocks ListProducts until closed.
	gate chan struct{}
}

func (r *countingReader) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	var out []catalog.Product
	for _, p := range r.products {
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *countingReader) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	r.calls.Add(1)
	for _, p := range r.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, catalog.ErrProductNotFound
}

func (r *countingReader) GetProductsByIDs(_ context.Context, _ []int64) ([]catalog.Product, error) {
	r.calls.Add(1)
	return r.products, nil
}

func (r *countingReader) ListCategories(_ context.Context) ([]catalog.Category, error) {
	r.calls.Add(1)
	return r.categories, nil
}

func (r *countingReader) GetCategory(_ context.Context, id int64) (*catalog.Category, error) {
	r.calls.Add(1)
	for _, c := range r.categories {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, catalog.ErrCategoryNotFound
}

func newReader() *countingReader {
	return &countingReader{
		products: []catalog.Product{
			{ID: 1, Name: "Fresh Tomato", Price: 40, CategoryID: 1, Stock: 100},
			{ID: 2, Name: "Amul Milk", Price: 30, CategoryID: 2, Stock: 50},
		},
		categories: []catalog.Category{
			{ID: 1, Name: "Vegetables & Fruits", Slug: "veg-fruits"},
			{ID: 2, Name: "Dairy & Breakfast", Slug: "dairy"},
		},
	}
}

// --- Tests ---

func TestCatalog_ReadThrough(t *testing.T) {
	backend := newReader()
	c := NewCatalog(backend, newMemStore(), time.Minute)
	ctx := context.Background()

	first, err := c.ListProducts(ctx, catalog.Filter{})
	require.NoError(t, err)
	second, err := c.ListProducts(ctx, catalog.Filter{})
	require.NoError(t, err)

	assert.Equal(t, backend.products, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), backend.calls.Load())

	cat := int64(2)
	filtered, err := c.ListProducts(ctx, catalog.Filter{CategoryID: &cat})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, int32(2), backend.calls.Load(), "filters are cached separately")

	p, err := c.GetProduct(ctx, 1)
	require.NoError(t, err)
	_, err = c.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Tomato", p.Name)
	assert.Equal(t, int32(3), backend.calls.Load())

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, backend.categories, cats)

	got, err := c.GetCategory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "dairy", got.Slug)
}

func TestCatalog_NotFoundIsNotCached(t *testing.T) {
	backend := newReader()
	store := newMemStore()
	c := NewCatalog(backend, store, time.Minute)
	ctx := context.Background()

	_, err := c.GetProduct(ctx, 99)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	_, err = c.GetProduct(ctx, 99)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
	_, err = c.GetCategory(ctx, 99)
	require.ErrorIs(t, err, catalog.ErrCategoryNotFound)

	assert.Equal(t, int32(3), backend.calls.Load())
	assert.Zero(t, store.sets)
}

func TestCatalog_ProductsByIDsBypassCache(t *testing.T) {
	backend := newReader()
	store := newMemStore()
	c := NewCatalog(backend, store, time.Minute)

	for range 2 {
		_, err := c.GetProductsByIDs(context.Background(), []int64{1, 2})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Zero(t, store.sets)
}

func TestCatalog_StoreFailureFallsBack(t *testing.T) {
	backend := newReader()
	store := newMemStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	c := NewCatalog(backend, store, time.Minute)

	products, err := c.ListProducts(context.Background(), catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestCatalog_CorruptEntryRefetched(t *testing.T) {
	backend := newReader()
	store := newMemStore()
	store.data[productsKey(catalog.Filter{})] = []byte(`{not json`)
	c := NewCatalog(backend, store, time.Minute)

	products, err := c.ListProducts(context.Background(), catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestCatalog_CoalescesConcurrentMisses(t *testing.T) {
	backend := newReader()
	backend.gate = make(chan struct{})
	c := NewCatalog(backend, newMemStore(), time.Minute)

	const callers = 8
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	errs := make(chan error, callers)
	started.Add(callers)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			_, err := c.ListProducts(context.Background(), catalog.Filter{})
			errs <- err
		}()
	}
	started.Wait()

	// Let the callers pile up behind the single in-flight fetch.
	require.Eventually(t, func() bool { return backend.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(backend.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestCatalog_CanceledCallerDoesNotFailOthers(t *testing.T) {
	backend := newReader()
	backend.gate = make(chan struct{})
	store := newMemStore()
	c := NewCatalog(backend, store, time.Minute)

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.ListProducts(firstCtx, catalog.Filter{})
		first <- err
	}()
	require.Eventually(t, func() bool { return backend.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		products []catalog.Product
		err      error
	}
	second := make(chan result, 1)
	go func() {
		ps, err := c.ListProducts(context.Background(), catalog.Filter{})
		second <- result{products: ps, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-first, context.Canceled)

	close(backend.gate)
	res := <-second
	require.NoError(t, res.err)
	assert.Len(t, res.products, 2)
	assert.Equal(t, int32(1), backend.calls.Load())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.sets, "shared result is still cached")
}

func TestProductsKey(t *testing.T) {
	cat := int64(3)
	assert.Equal(t, productsKey(catalog.Filter{Search: "Milk"}), productsKey(catalog.Filter{Search: "milk"}))
	assert.NotEqual(t, productsKey(catalog.Filter{}), productsKey(catalog.Filter{CategoryID: &cat}))
}
