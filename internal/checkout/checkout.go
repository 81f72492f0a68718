// Package checkout turns the local cart into a server-side order.
package checkout

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/cart"
	"github.com/sambamart/storefront/internal/client"
	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/order"
)

// MinAddressLength is the shortest accepted delivery address, after trimming.
const MinAddressLength = 5

// ErrSubmitInProgress is returned while another submission is outstanding.
var ErrSubmitInProgress = errors.New("order submission already in progress")

// Kind classifies a failed submission.
type Kind int

const (
	// ServerError covers transport failures and unexpected responses.
	ServerError Kind = iota
	// Unauthenticated means the user must sign in first.
	Unauthenticated
	// InvalidInput means the order was rejected as malformed.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case InvalidInput:
		return "invalid input"
	default:
		return "server error"
	}
}

// SubmitError is a classified submission failure. The cart is left as is.
type SubmitError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// OrderCreator creates orders on the server.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req api.OrderReq) (*order.Order, error)
}

// Submitter places orders for the items of a cart.
type Submitter struct {
	cart    *cart.Store
	orders  OrderCreator
	pending atomic.Bool
}

// NewSubmitter binds a Submitter to c.
func NewSubmitter(c *cart.Store, orders OrderCreator) *Submitter {
	return &Submitter{cart: c, orders: orders}
}

// Submit sends the cart as an order to address. On success the cart is
// cleared and the created order returned.
func (s *Submitter) Submit(ctx context.Context, address string) (*order.Order, error) {
	if !s.pending.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer s.pending.Store(false)

	items := s.cart.Items()
	if len(items) == 0 {
		return nil, &SubmitError{Kind: InvalidInput, Message: "cart is empty"}
	}
	address = strings.TrimSpace(address)
	if len([]rune(address)) < MinAddressLength {
		return nil, &SubmitError{
			Kind:    InvalidInput,
			Message: fmt.Sprintf("address must be at least %d characters", MinAddressLength),
		}
	}

	req := api.OrderReq{
		Address: address,
		Items:   make([]api.OrderReqItem, len(items)),
	}
	for i, it := range items {
		req.Items[i] = api.OrderReqItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	created, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, classify(err)
	}

	if err := s.cart.ClearCart(); err != nil {
		// The order exists; only the local state file is stale.
		zctx.From(ctx).Warn("Clear cart after checkout", zap.Int64("order_id", created.ID), zap.Error(err))
	}
	return created, nil
}

func classify(err error) *SubmitError {
	if errors.Is(err, auth.ErrUnauthenticated) {
		return &SubmitError{Kind: Unauthenticated, Message: "please sign in to place an order", Err: err}
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return &SubmitError{Kind: InvalidInput, Message: apiErr.Message, Err: err}
	}
	return &SubmitError{Kind: ServerError, Message: "failed to place order", Err: err}
}
