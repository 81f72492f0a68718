package order

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/catalog"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[int64]*catalog.Product
	getErr error
	calls  int
}

func (m *mockProductRepo) ListProducts(_ context.Context, _ catalog.Filter) ([]catalog.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetProduct(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetProductsByIDs(_ context.Context, ids []int64) ([]catalog.Product, error) {
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) ListCategories(_ context.Context) ([]catalog.Category, error) {
	return nil, nil
}

func (m *mockProductRepo) GetCategory(_ context.Context, _ int64) (*catalog.Category, error) {
	return nil, catalog.ErrCategoryNotFound
}

// mockOrderRepo keeps orders in memory and assigns sequential ids.
type mockOrderRepo struct {
	orders    map[int64]*Order
	nextID    int64
	lastOrder *Order
	createErr error
	clock     time.Time
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[int64]*Order),
		clock:  time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	o.ID = m.nextID
	o.CreatedAt = m.clock
	for i := range o.Items {
		o.Items[i].ID = int64(i + 1)
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]Item(nil), o.Items...)
	m.orders[o.ID] = &stored
	return nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			c := *o
			c.Items = nil
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepo) Get(_ context.Context, id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	c := *o
	return &c, nil
}

// --- Helpers ---

var alice = auth.Subject{ID: "u1", Email: "alice@example.com"}

func newProductRepo(products ...catalog.Product) *mockProductRepo {
	byID := make(map[int64]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func tomatoAndMilk() *mockProductRepo {
	return newProductRepo(
		catalog.Product{ID: 1, Name: "Fresh Tomato", Price: 40, CategoryID: 1, Stock: 100},
		catalog.Product{ID: 2, Name: "Amul Milk", Price: 30, CategoryID: 2, Stock: 50},
	)
}

func newTestService(t *testing.T, products catalog.Reader, orders Repository, policy UnknownProductPolicy) *Service {
	t.Helper()
	svc, err := NewService(products, orders, Options{UnknownProducts: policy})
	require.NoError(t, err)
	return svc
}

// --- Tests ---

func TestCreateOrder_ServerPricing(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)

	o, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items: []LineRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(110), o.TotalAmount)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "12 Main St", o.Address)
	assert.NotZero(t, o.ID)
	assert.Nil(t, o.Items, "created order is returned without items")

	require.Len(t, orders.lastOrder.Items, 2)
	assert.Equal(t, Item{ID: 1, OrderID: o.ID, ProductID: 1, Quantity: 2, Price: 40}, orders.lastOrder.Items[0])
	assert.Equal(t, Item{ID: 2, OrderID: o.ID, ProductID: 2, Quantity: 1, Price: 30}, orders.lastOrder.Items[1])
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	products := tomatoAndMilk()
	orders := newOrderRepo()
	svc := newTestService(t, products, orders, SkipUnknown)

	_, err := svc.CreateOrder(context.Background(), auth.Subject{}, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Nil(t, orders.lastOrder, "no order must be persisted")
	assert.Zero(t, products.calls, "no catalog lookup before authentication")
}

func TestCreateOrder_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		req       PlaceOrderRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "empty address",
			req:       PlaceOrderRequest{Items: []LineRequest{{ProductID: 1, Quantity: 1}}},
			wantField: "address",
			wantMsg:   "address is required",
		},
		{
			name:      "blank address",
			req:       PlaceOrderRequest{Address: "   ", Items: []LineRequest{{ProductID: 1, Quantity: 1}}},
			wantField: "address",
			wantMsg:   "address is required",
		},
		{
			name:      "nil items",
			req:       PlaceOrderRequest{Address: "12 Main St"},
			wantField: "items",
			wantMsg:   "items required",
		},
		{
			name:      "empty items",
			req:       PlaceOrderRequest{Address: "12 Main St", Items: []LineRequest{}},
			wantField: "items",
			wantMsg:   "items required",
		},
		{
			name:      "zero quantity",
			req:       PlaceOrderRequest{Address: "12 Main St", Items: []LineRequest{{ProductID: 1, Quantity: 0}}},
			wantField: "items[0].quantity",
			wantMsg:   "items[0].quantity must be greater than 0",
		},
		{
			name: "negative quantity on second line",
			req: PlaceOrderRequest{Address: "12 Main St", Items: []LineRequest{
				{ProductID: 1, Quantity: 1},
				{ProductID: 2, Quantity: -3},
			}},
			wantField: "items[1].quantity",
			wantMsg:   "items[1].quantity must be greater than 0",
		},
		{
			name:      "quantity above line limit",
			req:       PlaceOrderRequest{Address: "12 Main St", Items: []LineRequest{{ProductID: 1, Quantity: 3000000000}}},
			wantField: "items[0].quantity",
			wantMsg:   "items[0].quantity must not exceed 10000",
		},
		{
			name:      "non-positive product id",
			req:       PlaceOrderRequest{Address: "12 Main St", Items: []LineRequest{{ProductID: 0, Quantity: 1}}},
			wantField: "items[0].productId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := newOrderRepo()
			svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)

			_, err := svc.CreateOrder(context.Background(), alice, tt.req)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantField, vErr.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, vErr.Message)
			}
			assert.Nil(t, orders.lastOrder, "invalid input must not be persisted")
		})
	}
}

func TestCreateOrder_TotalOverflow(t *testing.T) {
	orders := newOrderRepo()
	products := newProductRepo(
		catalog.Product{ID: 1, Name: "Gold Bar", Price: math.MaxInt64 / 2, CategoryID: 1},
		catalog.Product{ID: 2, Name: "Amul Milk", Price: 30, CategoryID: 2},
	)
	svc := newTestService(t, products, orders, SkipUnknown)

	_, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items: []LineRequest{
			{ProductID: 2, Quantity: 1},
			{ProductID: 1, Quantity: 2},
		},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items", vErr.Field)
	assert.Nil(t, orders.lastOrder, "overflowing order must not be persisted")
}

func TestAddLine(t *testing.T) {
	total, ok := addLine(10, 40, 2)
	require.True(t, ok)
	assert.Equal(t, int64(90), total)

	_, ok = addLine(0, math.MaxInt64/2+1, 2)
	assert.False(t, ok)
	_, ok = addLine(math.MaxInt64-5, 3, 2)
	assert.False(t, ok)
	total, ok = addLine(math.MaxInt64, 0, MaxLineQuantity)
	require.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), total)
}

func TestCreateOrder_UnknownProductSkipped(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)

	o, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items: []LineRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 999, Quantity: 5},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(40), o.TotalAmount)
	require.Len(t, orders.lastOrder.Items, 1)
	assert.Equal(t, int64(1), orders.lastOrder.Items[0].ProductID)
}

func TestCreateOrder_AllProductsUnknown(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)

	o, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 404, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Zero(t, o.TotalAmount)
	assert.Empty(t, orders.lastOrder.Items)
}

func TestCreateOrder_UnknownProductRejected(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(t, tomatoAndMilk(), orders, RejectUnknown)

	_, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items: []LineRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 999, Quantity: 5},
		},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, int64(999), pnfErr.ProductID)
	assert.Nil(t, orders.lastOrder)
}

func TestCreateOrder_PriceSnapshot(t *testing.T) {
	products := tomatoAndMilk()
	orders := newOrderRepo()
	svc := newTestService(t, products, orders, SkipUnknown)

	created, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)

	// The catalog price changes after placement.
	products.byID[1].Price = 55

	got, err := svc.GetOrder(context.Background(), created.ID, alice)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(40), got.Items[0].Price)
	assert.Equal(t, int64(120), got.TotalAmount)
}

func TestCreateOrder_CatalogError(t *testing.T) {
	products := tomatoAndMilk()
	products.getErr = errors.New("connection reset")
	orders := newOrderRepo()
	svc := newTestService(t, products, orders, SkipUnknown)

	_, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get products")
	assert.Nil(t, orders.lastOrder)
}

func TestCreateOrder_OrderCreateError(t *testing.T) {
	orders := newOrderRepo()
	orders.createErr = errors.New("db write failed")
	svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)

	_, err := svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

// blockingOrderRepo never completes Create until its context ends.
type blockingOrderRepo struct {
	mockOrderRepo
}

func (b *blockingOrderRepo) Create(ctx context.Context, _ *Order) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestCreateOrder_StoreTimeout(t *testing.T) {
	svc, err := NewService(tomatoAndMilk(), &blockingOrderRepo{}, Options{StoreTimeout: 10 * time.Millisecond})
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListOrders_NewestFirst(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)
	ctx := context.Background()

	var ids []int64
	for range 3 {
		o, err := svc.CreateOrder(ctx, alice, PlaceOrderRequest{
			Address: "12 Main St",
			Items:   []LineRequest{{ProductID: 2, Quantity: 1}},
		})
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, err := svc.CreateOrder(ctx, auth.Subject{ID: "u2"}, PlaceOrderRequest{
		Address: "7 Side Rd",
		Items:   []LineRequest{{ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	list, err := svc.ListOrders(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{list[0].ID, list[1].ID, list[2].ID})
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].CreatedAt.After(list[i].CreatedAt))
	}
}

func TestListOrders_Unauthenticated(t *testing.T) {
	svc := newTestService(t, tomatoAndMilk(), newOrderRepo(), SkipUnknown)

	_, err := svc.ListOrders(context.Background(), auth.Subject{})
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestGetOrder(t *testing.T) {
	orders := newOrderRepo()
	svc := newTestService(t, tomatoAndMilk(), orders, SkipUnknown)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, alice, PlaceOrderRequest{
		Address: "12 Main St",
		Items:   []LineRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	t.Run("owner", func(t *testing.T) {
		o, err := svc.GetOrder(ctx, created.ID, alice)
		require.NoError(t, err)
		assert.Equal(t, created.ID, o.ID)
		assert.Len(t, o.Items, 1)
	})

	t.Run("other subject is forbidden", func(t *testing.T) {
		_, err := svc.GetOrder(ctx, created.ID, auth.Subject{ID: "u2"})
		require.ErrorIs(t, err, ErrForbidden)
		assert.NotErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("missing order is not found", func(t *testing.T) {
		_, err := svc.GetOrder(ctx, created.ID+100, alice)
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.GetOrder(ctx, created.ID, auth.Subject{})
		require.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestParseUnknownProductPolicy(t *testing.T) {
	for in, want := range map[string]UnknownProductPolicy{
		"":       SkipUnknown,
		"skip":   SkipUnknown,
		" Skip ": SkipUnknown,
		"reject": RejectUnknown,
		"REJECT": RejectUnknown,
	} {
		got, err := ParseUnknownProductPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseUnknownProductPolicy("ignore")
	require.Error(t, err)
}
