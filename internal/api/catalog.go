package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/sambamart/storefront/internal/domain/catalog"
)

// Product is the wire form of catalog.Product.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       int64
	ImageURL    string
	CategoryID  int64
	Stock       int
}

// NewProduct converts a domain product.
func NewProduct(p catalog.Product) Product {
	return Product(p)
}

// Domain converts v back into a domain product.
func (v Product) Domain() catalog.Product {
	return catalog.Product(v)
}

// Encode implements Encoder.
func (v *Product) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(v.ID)
	e.FieldStart("name")
	e.Str(v.Name)
	e.FieldStart("description")
	e.Str(v.Description)
	e.FieldStart("price")
	e.Int64(v.Price)
	e.FieldStart("imageUrl")
	e.Str(v.ImageURL)
	e.FieldStart("categoryId")
	e.Int64(v.CategoryID)
	e.FieldStart("stock")
	e.Int(v.Stock)
	e.ObjEnd()
}

// Decode implements Decoder.
func (v *Product) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Int64()
		case "name":
			v.Name, err = d.Str()
		case "description":
			v.Description, err = decodeOptStr(d)
		case "price":
			v.Price, err = d.Int64()
		case "imageUrl":
			v.ImageURL, err = decodeOptStr(d)
		case "categoryId":
			v.CategoryID, err = d.Int64()
		case "stock":
			v.Stock, err = d.Int()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode product field %q", key)
	})
}

// Products is a JSON array of Product.
type Products []Product

// NewProducts converts domain products.
func NewProducts(ps []catalog.Product) Products {
	out := make(Products, len(ps))
	for i, p := range ps {
		out[i] = NewProduct(p)
	}
	return out
}

// Domain converts v back into domain products.
func (v Products) Domain() []catalog.Product {
	out := make([]catalog.Product, len(v))
	for i, p := range v {
		out[i] = p.Domain()
	}
	return out
}

// Encode implements Encoder.
func (v Products) Encode(e *jx.Encoder) {
	e.ArrStart()
	for i := range v {
		v[i].Encode(e)
	}
	e.ArrEnd()
}

// Decode implements Decoder.
func (v *Products) Decode(d *jx.Decoder) error {
	*v = (*v)[:0]
	return decodeArr(d, func(d *jx.Decoder) error {
		var p Product
		if err := p.Decode(d); err != nil {
			return err
		}
		*v = append(*v, p)
		return nil
	})
}

// Category is the wire form of catalog.Category.
type Category struct {
	ID       int64
	Name     string
	Slug     string
	ImageURL string
}

// NewCategory converts a domain category.
func NewCategory(c catalog.Category) Category {
	return Category(c)
}

// Domain converts v back into a domain category.
func (v Category) Domain() catalog.Category {
	return catalog.Category(v)
}

// Encode implements Encoder.
func (v *Category) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(v.ID)
	e.FieldStart("name")
	e.Str(v.Name)
	e.FieldStart("slug")
	e.Str(v.Slug)
	e.FieldStart("imageUrl")
	e.Str(v.ImageURL)
	e.ObjEnd()
}

// Decode implements Decoder.
func (v *Category) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Int64()
		case "name":
			v.Name, err = d.Str()
		case "slug":
			v.Slug, err = d.Str()
		case "imageUrl":
			v.ImageURL, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode category field %q", key)
	})
}

// Categories is a JSON array of Category.
type Categories []Category

// NewCategories converts domain categories.
func NewCategories(cs []catalog.Category) Categories {
	out := make(Categories, len(cs))
	for i, c := range cs {
		out[i] = NewCategory(c)
	}
	return out
}

// Domain converts v back into domain categories.
func (v Categories) Domain() []catalog.Category {
	out := make([]catalog.Category, len(v))
	for i, c := range v {
		out[i] = c.Domain()
	}
	return out
}

// Encode implements Encoder.
func (v Categories) Encode(e *jx.Encoder) {
	e.ArrStart()
	for i := range v {
		v[i].Encode(e)
	}
	e.ArrEnd()
}

// Decode implements Decoder.
func (v *Categories) Decode(d *jx.Decoder) error {
	*v = (*v)[:0]
	return decodeArr(d, func(d *jx.Decoder) error {
		var c Category
		if err := c.Decode(d); err != nil {
			return err
		}
		*v = append(*v, c)
		return nil
	})
}

// decodeOptStr decodes a string that may be null.
func decodeOptStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
