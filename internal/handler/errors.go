package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/catalog"
	"github.com/sambamart/storefront/internal/domain/order"
)

// fail maps a domain error to its HTTP status and writes the error body.
// Anything unrecognised is logged and reported as 500 without details.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *order.ValidationError
		pnfErr *order.ProductNotFoundError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		api.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.As(err, &vErr):
		api.WriteError(w, http.StatusBadRequest, vErr.Message)
	case errors.As(err, &pnfErr):
		api.WriteError(w, http.StatusBadRequest, pnfErr.Error())
	case errors.Is(err, catalog.ErrProductNotFound):
		api.WriteError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, catalog.ErrCategoryNotFound):
		api.WriteError(w, http.StatusNotFound, "Category not found")
	case errors.Is(err, order.ErrOrderNotFound):
		api.WriteError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, order.ErrForbidden):
		api.WriteError(w, http.StatusForbidden, "Forbidden")
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		api.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
