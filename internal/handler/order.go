package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/order"
)

// createOrder decodes the request, delegates to the order service and
// returns the created order. Prices are never read from the request.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subject, _ := auth.SubjectFromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "Invalid order request")
		return
	}
	var req api.OrderReq
	if err := api.Unmarshal(body, &req); err != nil {
		zctx.From(ctx).Debug("Malformed order request", zap.Error(err))
		api.WriteError(w, http.StatusBadRequest, "Invalid order request")
		return
	}

	o, err := h.orders.CreateOrder(ctx, subject, req.Domain())
	if err != nil {
		fail(w, r, err)
		return
	}

	zctx.From(ctx).Info("Order placed",
		zap.Int64("order_id", o.ID),
		zap.Int64("total_amount", o.TotalAmount),
	)
	v := api.NewOrder(*o)
	api.WriteJSON(w, http.StatusCreated, &v)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	subject, _ := auth.SubjectFromContext(r.Context())

	orders, err := h.orders.ListOrders(r.Context(), subject)
	if err != nil {
		fail(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, api.NewOrders(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	subject, _ := auth.SubjectFromContext(r.Context())

	id, ok := pathID(r)
	if !ok {
		fail(w, r, order.ErrOrderNotFound)
		return
	}

	o, err := h.orders.GetOrder(r.Context(), id, subject)
	if err != nil {
		fail(w, r, err)
		return
	}
	v := api.NewOrder(*o)
	api.WriteJSON(w, http.StatusOK, &v)
}
