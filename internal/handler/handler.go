// Package handler implements the storefront REST API on a chi router.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sambamart/storefront/internal/api"
	authmw "github.com/sambamart/storefront/internal/auth"
	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/catalog"
	"github.com/sambamart/storefront/internal/domain/order"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// OrderService places and reads orders on behalf of a subject.
type OrderService interface {
	CreateOrder(ctx context.Context, subject auth.Subject, req order.PlaceOrderRequest) (*order.Order, error)
	ListOrders(ctx context.Context, subject auth.Subject) ([]order.Order, error)
	GetOrder(ctx context.Context, id int64, subject auth.Subject) (*order.Order, error)
}

var _ OrderService = (*order.Service)(nil)

// Handler serves the /api routes.
type Handler struct {
	catalog catalog.Reader
	orders  OrderService
}

// NewHandler constructs a Handler. products serves browsing and may be cached.
func NewHandler(products catalog.Reader, orders OrderService) *Handler {
	return &Handler{
		catalog: products,
		orders:  orders,
	}
}

// Routes returns the API router. Every request passes through the bearer
// token middleware; order routes additionally require a subject.
func (h *Handler) Routes(authn auth.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(authmw.Middleware(authn))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{id}", h.getCategory)
		r.Get("/user", h.getUser)

		r.Group(func(r chi.Router) {
			r.Use(authmw.Require)
			r.Post("/orders", h.createOrder)
			r.Get("/orders", h.listOrders)
			r.Get("/orders/{id}", h.getOrder)
		})
	})

	return r
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.SubjectFromContext(r.Context())
	u := api.NewOptNilUser(s)
	api.WriteJSON(w, http.StatusOK, &u)
}
