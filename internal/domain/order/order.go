package order

import (
	"context"
	"time"
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPending is the only state produced by order placement.
	StatusPending Status = "pending"
	// StatusDelivered marks an order handed over to the customer.
	StatusDelivered Status = "delivered"
	// StatusCancelled marks an order that will not be fulfilled.
	StatusCancelled Status = "cancelled"
)

// Order is a placed customer order. TotalAmount is computed from catalog
// prices at placement time and is in minor currency units.
type Order struct {
	ID          int64
	UserID      string
	Status      Status
	TotalAmount int64
	Address     string
	CreatedAt   time.Time
	Items       []Item
}

// Item is a single order line. Price is the unit price captured from the
// product when the order was created and never changes afterwards.
type Item struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     int64
}

// MaxLineQuantity is the largest quantity accepted for a single order line.
// Keep in sync with the lte bound on LineRequest.Quantity.
const MaxLineQuantity = 10000

// LineRequest is a requested order line as sent by the client. It carries no
// price: the server is the only pricing authority.
type LineRequest struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1,lte=10000"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create inserts o and all of o.Items in a single transaction, filling in
	// generated identifiers and CreatedAt.
	Create(ctx context.Context, o *Order) error
	// ListByUser returns the user's orders, newest first, without items.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// Get returns the order with its items, or ErrOrderNotFound.
	Get(ctx context.Context, id int64) (*Order, error)
}
