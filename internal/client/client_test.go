package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/catalog"
	"github.com/sambamart/storefront/internal/domain/order"
)

const productsJSON = `[
	{"id":1,"name":"Fresh Tomato","description":null,"price":40,"imageUrl":"t.png","categoryId":1,"stock":100},
	{"id":2,"name":"Amul Milk","description":"Toned","price":30,"imageUrl":"m.png","categoryId":2,"stock":50}
]`

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func newTestServer(t *testing.T) (*httptest.Server, *[]*http.Request, *[]byte) {
	t.Helper()
	var (
		requests []*http.Request
		lastBody []byte
	)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r)
		writeJSON(w, http.StatusOK, productsJSON)
	})
	mux.HandleFunc("GET /api/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			writeJSON(w, http.StatusNotFound, `{"code":404,"message":"Product not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":1,"name":"Fresh Tomato","price":40,"imageUrl":"t.png","categoryId":1,"stock":100}`)
	})
	mux.HandleFunc("GET /api/categories", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":1,"name":"Vegetables & Fruits","slug":"veg-fruits","imageUrl":"v.png"}]`)
	})
	mux.HandleFunc("GET /api/categories/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"code":404,"message":"Category not found"}`)
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r)
		lastBody, _ = io.ReadAll(r.Body)
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, `{"code":401,"message":"Unauthorized"}`)
			return
		}
		writeJSON(w, http.StatusCreated, `{"id":7,"userId":"u1","status":"pending","totalAmount":110,"address":"221B Baker Street","createdAt":"2026-03-01T12:00:00Z"}`)
	})
	mux.HandleFunc("GET /api/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "7":
			writeJSON(w, http.StatusOK, `{"id":7,"userId":"u1","status":"pending","totalAmount":110,"address":"221B Baker Street","createdAt":"2026-03-01T12:00:00Z","items":[{"id":1,"orderId":7,"productId":1,"quantity":2,"price":40}]}`)
		case "8":
			writeJSON(w, http.StatusForbidden, `{"code":403,"message":"Forbidden"}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"code":404,"message":"Order not found"}`)
		}
	})
	mux.HandleFunc("GET /api/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusOK, `null`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"u1","email":"alice@example.com"}`)
	})
	mux.HandleFunc("GET /api/orders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"code":500,"message":"Internal server error"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &requests, &lastBody
}

func TestClient_Catalog(t *testing.T) {
	srv, requests, _ := newTestServer(t)
	c := New(srv.URL, Options{})
	ctx := context.Background()

	cat := int64(2)
	products, err := c.ListProducts(ctx, catalog.Filter{CategoryID: &cat, Search: "milk"})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(40), products[0].Price)
	assert.Equal(t, "2", (*requests)[0].URL.Query().Get("categoryId"))
	assert.Equal(t, "milk", (*requests)[0].URL.Query().Get("search"))

	p, err := c.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Tomato", p.Name)

	_, err = c.GetProduct(ctx, 99)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	byID, err := c.GetProductsByIDs(ctx, []int64{2, 5})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, int64(2), byID[0].ID)

	categories, err := c.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "veg-fruits", categories[0].Slug)

	_, err = c.GetCategory(ctx, 3)
	assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestClient_CreateOrder(t *testing.T) {
	srv, _, body := newTestServer(t)
	ctx := context.Background()
	req := api.OrderReq{
		Address: "221B Baker Street",
		Items:   []api.OrderReqItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
	}

	o, err := New(srv.URL, Options{Token: "good"}).CreateOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.ID)
	assert.Equal(t, int64(110), o.TotalAmount)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), o.CreatedAt.UTC())
	assert.JSONEq(t, `{"address":"221B Baker Street","items":[{"productId":1,"quantity":2},{"productId":2,"quantity":1}]}`, string(*body))

	_, err = New(srv.URL, Options{}).CreateOrder(ctx, req)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestClient_Orders(t *testing.T) {
	srv, _, _ := newTestServer(t)
	c := New(srv.URL, Options{Token: "good"})
	ctx := context.Background()

	o, err := c.GetOrder(ctx, 7)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int64(40), o.Items[0].Price)

	_, err = c.GetOrder(ctx, 8)
	assert.ErrorIs(t, err, order.ErrForbidden)

	_, err = c.GetOrder(ctx, 9)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	_, err = c.ListOrders(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.False(t, errors.Is(err, auth.ErrUnauthenticated))
}

func TestClient_Me(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ctx := context.Background()

	s, ok, err := New(srv.URL, Options{Token: "good"}).Me(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, auth.Subject{ID: "u1", Email: "alice@example.com"}, s)

	_, ok, err = New(srv.URL, Options{}).Me(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
