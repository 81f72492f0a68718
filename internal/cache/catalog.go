// Package cache provides a read-through cache for catalog browsing.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/catalog"
)

const keyPrefix = "sambamart:catalog:"

// fetchTimeout bounds a backend fetch shared by coalesced callers.
const fetchTimeout = 5 * time.Second

var _ catalog.Reader = (*Catalog)(nil)

// Catalog decorates a catalog.Reader with a Store. Concurrent misses for the
// same key share one backend call. Store failures are logged and fall back
// to the backend. Not-found results are never cached.
//
// GetProductsByIDs is not cached: it serves order pricing and must see the
// authoritative price.
type Catalog struct {
	next  catalog.Reader
	store Store
	ttl   time.Duration
	group singleflight.Group
}

// NewCatalog returns a caching Catalog.
func NewCatalog(next catalog.Reader, store Store, ttl time.Duration) *Catalog {
	return &Catalog{next: next, store: store, ttl: ttl}
}

// ListProducts implements catalog.Reader.
func (c *Catalog) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	var v api.Products
	err := c.load(ctx, productsKey(f), &v, func(ctx context.Context) (api.Encoder, error) {
		ps, err := c.next.ListProducts(ctx, f)
		if err != nil {
			return nil, err
		}
		return api.NewProducts(ps), nil
	})
	if err != nil {
		return nil, err
	}
	return v.Domain(), nil
}

// GetProduct implements catalog.Reader.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	var v api.Product
	err := c.load(ctx, keyPrefix+"product:"+strconv.FormatInt(id, 10), &v, func(ctx context.Context) (api.Encoder, error) {
		p, err := c.next.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		out := api.NewProduct(*p)
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	p := v.Domain()
	return &p, nil
}

// GetProductsByIDs implements catalog.Reader by delegating uncached.
func (c *Catalog) GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	return c.next.GetProductsByIDs(ctx, ids)
}

// ListCategories implements catalog.Reader.
func (c *Catalog) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var v api.Categories
	err := c.load(ctx, keyPrefix+"categories", &v, func(ctx context.Context) (api.Encoder, error) {
		cs, err := c.next.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		return api.NewCategories(cs), nil
	})
	if err != nil {
		return nil, err
	}
	return v.Domain(), nil
}

// GetCategory implements catalog.Reader.
func (c *Catalog) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	var v api.Category
	err := c.load(ctx, keyPrefix+"category:"+strconv.FormatInt(id, 10), &v, func(ctx context.Context) (api.Encoder, error) {
		cat, err := c.next.GetCategory(ctx, id)
		if err != nil {
			return nil, err
		}
		out := api.NewCategory(*cat)
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	cat := v.Domain()
	return &cat, nil
}

// load fills dst from the store, or from fetch on a miss.
func (c *Catalog) load(ctx context.Context, key string, dst api.Decoder, fetch func(ctx context.Context) (api.Encoder, error)) error {
	lg := zctx.From(ctx).With(zap.String("cache_key", key))

	b, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		decErr := api.Unmarshal(b, dst)
		if decErr == nil {
			return nil
		}
		lg.Warn("Discarding undecodable cache entry", zap.Error(decErr))
	case !errors.Is(err, ErrMiss):
		lg.Warn("Cache read failed", zap.Error(err))
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// on its own context.
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		b := api.Marshal(v)
		if err := c.store.Set(fetchCtx, key, b, c.ttl); err != nil {
			lg.Warn("Cache write failed", zap.Error(err))
		}
		return b, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return errors.Wrap(api.Unmarshal(res.Val.([]byte), dst), "decode fetched value")
	}
}

func productsKey(f catalog.Filter) string {
	var sb strings.Builder
	sb.WriteString(keyPrefix)
	sb.WriteString("products:c=")
	if f.CategoryID != nil {
		sb.WriteString(strconv.FormatInt(*f.CategoryID, 10))
	}
	sb.WriteString(":q=")
	sb.WriteString(strings.ToLower(f.Search))
	return sb.String()
}
