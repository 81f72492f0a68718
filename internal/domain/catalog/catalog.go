// Package catalog describes the product catalog read by browsing pages, the
// cart and the order service.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrProductNotFound is returned when a requested product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound is returned when a requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
)

// Product is a catalog item. Price is in minor currency units.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       int64
	ImageURL    string
	CategoryID  int64
	Stock       int
}

// Category groups products for browsing.
type Category struct {
	ID       int64
	Name     string
	Slug     string
	ImageURL string
}

// Filter narrows ListProducts. The zero value matches every product.
type Filter struct {
	// CategoryID restricts results to one category when set.
	CategoryID *int64
	// Search is a case-insensitive substring matched against product names.
	Search string
}

// Reader provides read-only access to products and categories.
type Reader interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
}
