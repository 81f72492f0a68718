// Package seed decodes development catalog files used by cmd/seed-db.
//
// A catalog file is a JSON document of the form
//
//	{"categories": [{"name": "...", "slug": "...", "imageUrl": "...",
//	  "products": [{"name": "...", "description": "...", "price": 40,
//	                "imageUrl": "...", "stock": 100}]}]}
//
// optionally gzip-compressed.
package seed

import (
	"bufio"
	"bytes"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/gosimple/slug"
	"github.com/klauspost/pgzip"
)

// Catalog is a decoded seed file.
type Catalog struct {
	Categories []Category
}

// Category is a seed category with its products.
type Category struct {
	Name     string
	Slug     string
	ImageURL string
	Products []Product
}

// Product is a seed product. Price is in minor currency units.
type Product struct {
	Name        string
	Description string
	Price       int64
	ImageURL    string
	Stock       int
}

var gzipMagic = []byte{0x1f, 0x8b}

// Decode reads a catalog from r, transparently decompressing gzip input.
// Categories without a slug get one derived from their name.
func Decode(r io.Reader) (*Catalog, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(gzipMagic)); err == nil && bytes.Equal(head, gzipMagic) {
		zr, err := pgzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip")
		}
		defer func() { _ = zr.Close() }()
		return decode(jx.Decode(zr, 4096))
	}
	return decode(jx.Decode(br, 4096))
}

func decode(d *jx.Decoder) (*Catalog, error) {
	var c Catalog
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "categories":
			return d.Arr(func(d *jx.Decoder) error {
				var cat Category
				if err := cat.decode(d); err != nil {
					return err
				}
				c.Categories = append(c.Categories, cat)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode catalog")
	}

	seen := make(map[string]string, len(c.Categories))
	for i := range c.Categories {
		cat := &c.Categories[i]
		if cat.Name == "" {
			return nil, errors.Errorf("category %d: name is required", i)
		}
		if cat.Slug == "" {
			cat.Slug = slug.Make(cat.Name)
		}
		if prev, ok := seen[cat.Slug]; ok {
			return nil, errors.Errorf("categories %q and %q share slug %q", prev, cat.Name, cat.Slug)
		}
		seen[cat.Slug] = cat.Name

		for j, p := range cat.Products {
			switch {
			case p.Name == "":
				return nil, errors.Errorf("category %q product %d: name is required", cat.Name, j)
			case p.Price < 0:
				return nil, errors.Errorf("product %q: negative price", p.Name)
			case p.Stock < 0:
				return nil, errors.Errorf("product %q: negative stock", p.Name)
			}
		}
	}
	return &c, nil
}

func (c *Category) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = d.Str()
		case "slug":
			c.Slug, err = d.Str()
		case "imageUrl":
			c.ImageURL, err = d.Str()
		case "products":
			err = d.Arr(func(d *jx.Decoder) error {
				var p Product
				if err := p.decode(d); err != nil {
					return err
				}
				c.Products = append(c.Products, p)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "category field %q", key)
	})
}

func (p *Product) decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = d.Int64()
		case "imageUrl":
			p.ImageURL, err = d.Str()
		case "stock":
			p.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "product field %q", key)
	})
}
