package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sambamart/storefront/internal/seed"
)

const (
	countCategoriesSQL = `SELECT count(*) FROM categories`

	insertCategorySQL = `INSERT INTO categories (name, slug, image_url)
		VALUES ($1, $2, $3) RETURNING id`

	insertProductSQL = `INSERT INTO products (name, description, price, image_url, category_id, stock)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

// SeedCatalog inserts c in one transaction when the catalog is empty. It
// reports whether anything was written.
func SeedCatalog(ctx context.Context, pool *pgxpool.Pool, c *seed.Catalog) (bool, error) {
	var existing int
	if err := pool.QueryRow(ctx, countCategoriesSQL).Scan(&existing); err != nil {
		return false, fmt.Errorf("counting categories: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	err := inTx(ctx, pool, func(tx pgx.Tx) error {
		for _, cat := range c.Categories {
			var id int64
			if err := tx.QueryRow(ctx, insertCategorySQL, cat.Name, cat.Slug, cat.ImageURL).Scan(&id); err != nil {
				return fmt.Errorf("inserting category %q: %w", cat.Slug, err)
			}
			for _, p := range cat.Products {
				if _, err := tx.Exec(ctx, insertProductSQL, p.Name, p.Description, p.Price, p.ImageURL, id, p.Stock); err != nil {
					return fmt.Errorf("inserting product %q: %w", p.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
