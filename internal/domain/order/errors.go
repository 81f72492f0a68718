package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrOrderNotFound is returned when the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrForbidden is returned when the order belongs to another subject.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports a malformed order request. Message is safe to show
// to the caller as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProductNotFoundError indicates a requested product does not exist. It is
// only returned under the RejectUnknown policy.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}
