package order

import (
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest normalizes req in place and checks its shape.
func validateRequest(req *PlaceOrderRequest) error {
	req.Address = strings.TrimSpace(req.Address)

	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errors.Wrap(err, "validate order request")
	}
	return toValidationError(fieldErrs[0])
}

func toValidationError(fe validator.FieldError) *ValidationError {
	// Namespace is "PlaceOrderRequest.items[0].quantity"; drop the type name.
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	var msg string
	switch fe.Field() {
	case "address":
		msg = "address is required"
	case "items":
		msg = "items required"
	case "productId":
		msg = field + " must be a positive product id"
	case "quantity":
		if fe.Tag() == "lte" {
			msg = field + " must not exceed " + strconv.Itoa(MaxLineQuantity)
		} else {
			msg = field + " must be greater than 0"
		}
	default:
		msg = field + " is invalid"
	}
	return &ValidationError{Field: field, Message: msg}
}

// addLine returns total + price*quantity, or false if the result does not fit
// in an int64.
func addLine(total, price int64, quantity int) (int64, bool) {
	q := int64(quantity)
	if price < 0 || q < 0 {
		return 0, false
	}
	if price != 0 && q > math.MaxInt64/price {
		return 0, false
	}
	line := price * q
	if total > math.MaxInt64-line {
		return 0, false
	}
	return total + line, true
}
