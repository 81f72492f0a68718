package order

import (
	"strings"

	"github.com/go-faster/errors"
)

// UnknownProductPolicy selects how order placement treats lines that
// reference a product missing from the catalog.
type UnknownProductPolicy string

const (
	// SkipUnknown drops such lines: they add nothing to the total and are not
	// persisted.
	SkipUnknown UnknownProductPolicy = "skip"
	// RejectUnknown fails the whole order with a ProductNotFoundError.
	RejectUnknown UnknownProductPolicy = "reject"
)

// ParseUnknownProductPolicy parses a policy name. The empty string selects
// SkipUnknown.
func ParseUnknownProductPolicy(s string) (UnknownProductPolicy, error) {
	switch p := UnknownProductPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", SkipUnknown:
		return SkipUnknown, nil
	case RejectUnknown:
		return RejectUnknown, nil
	default:
		return "", errors.Errorf("unknown product policy %q (want %q or %q)", s, SkipUnknown, RejectUnknown)
	}
}
