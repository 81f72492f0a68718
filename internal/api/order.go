package api

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/sambamart/storefront/internal/domain/order"
)

// OrderItem is the wire form of order.Item.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	Price     int64
}

// Encode implements Encoder.
func (v *OrderItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(v.ID)
	e.FieldStart("orderId")
	e.Int64(v.OrderID)
	e.FieldStart("productId")
	e.Int64(v.ProductID)
	e.FieldStart("quantity")
	e.Int(v.Quantity)
	e.FieldStart("price")
	e.Int64(v.Price)
	e.ObjEnd()
}

// Decode implements Decoder.
func (v *OrderItem) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Int64()
		case "orderId":
			v.OrderID, err = d.Int64()
		case "productId":
			v.ProductID, err = d.Int64()
		case "quantity":
			v.Quantity, err = d.Int()
		case "price":
			v.Price, err = d.Int64()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode order item field %q", key)
	})
}

// Order is the wire form of order.Order. Items is omitted from the encoding
// when nil.
type Order struct {
	ID          int64
	UserID      string
	Status      string
	TotalAmount int64
	Address     string
	CreatedAt   time.Time
	Items       []OrderItem
}

// NewOrder converts a domain order.
func NewOrder(o order.Order) Order {
	v := Order{
		ID:          o.ID,
		UserID:      o.UserID,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Address:     o.Address,
		CreatedAt:   o.CreatedAt,
	}
	if o.Items != nil {
		v.Items = make([]OrderItem, len(o.Items))
		for i, it := range o.Items {
			v.Items[i] = OrderItem(it)
		}
	}
	return v
}

// Domain converts v back into a domain order.
func (v Order) Domain() order.Order {
	o := order.Order{
		ID:          v.ID,
		UserID:      v.UserID,
		Status:      order.Status(v.Status),
		TotalAmount: v.TotalAmount,
		Address:     v.Address,
		CreatedAt:   v.CreatedAt,
	}
	if v.Items != nil {
		o.Items = make([]order.Item, len(v.Items))
		for i, it := range v.Items {
			o.Items[i] = order.Item(it)
		}
	}
	return o
}

// Encode implements Encoder.
func (v *Order) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(v.ID)
	e.FieldStart("userId")
	e.Str(v.UserID)
	e.FieldStart("status")
	e.Str(v.Status)
	e.FieldStart("totalAmount")
	e.Int64(v.TotalAmount)
	e.FieldStart("address")
	e.Str(v.Address)
	e.FieldStart("createdAt")
	e.Str(v.CreatedAt.UTC().Format(time.RFC3339Nano))
	if v.Items != nil {
		e.FieldStart("items")
		e.ArrStart()
		for i := range v.Items {
			v.Items[i].Encode(e)
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// Decode implements Decoder.
func (v *Order) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			v.ID, err = d.Int64()
		case "userId":
			v.UserID, err = d.Str()
		case "status":
			v.Status, err = d.Str()
		case "totalAmount":
			v.TotalAmount, err = d.Int64()
		case "address":
			v.Address, err = d.Str()
		case "createdAt":
			var s string
			if s, err = d.Str(); err == nil {
				v.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		case "items":
			v.Items = []OrderItem{}
			err = decodeArr(d, func(d *jx.Decoder) error {
				var it OrderItem
				if err := it.Decode(d); err != nil {
					return err
				}
				v.Items = append(v.Items, it)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode order field %q", key)
	})
}

// Orders is a JSON array of Order.
type Orders []Order

// NewOrders converts domain orders.
func NewOrders(orders []order.Order) Orders {
	out := make(Orders, len(orders))
	for i, o := range orders {
		out[i] = NewOrder(o)
	}
	return out
}

// Encode implements Encoder.
func (v Orders) Encode(e *jx.Encoder) {
	e.ArrStart()
	for i := range v {
		v[i].Encode(e)
	}
	e.ArrEnd()
}

// Decode implements Decoder.
func (v *Orders) Decode(d *jx.Decoder) error {
	*v = (*v)[:0]
	return decodeArr(d, func(d *jx.Decoder) error {
		var o Order
		if err := o.Decode(d); err != nil {
			return err
		}
		*v = append(*v, o)
		return nil
	})
}

// OrderReqItem is a requested line. It has no price field.
type OrderReqItem struct {
	ProductID int64
	Quantity  int
}

// OrderReq is the body of POST /api/orders.
type OrderReq struct {
	Address string
	Items   []OrderReqItem
}

// Domain converts v into an order placement request.
func (v OrderReq) Domain() order.PlaceOrderRequest {
	req := order.PlaceOrderRequest{Address: v.Address}
	if v.Items != nil {
		req.Items = make([]order.LineRequest, len(v.Items))
		for i, it := range v.Items {
			req.Items[i] = order.LineRequest(it)
		}
	}
	return req
}

// Encode implements Encoder.
func (v *OrderReq) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("address")
	e.Str(v.Address)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range v.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Decode implements Decoder. Missing fields are left zero; any unknown field,
// including a client-supplied price, is ignored.
func (v *OrderReq) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "address":
			v.Address, err = decodeOptStr(d)
		case "items":
			v.Items = []OrderReqItem{}
			err = decodeArr(d, func(d *jx.Decoder) error {
				var it OrderReqItem
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						it.ProductID, err = d.Int64()
					case "quantity":
						it.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return errors.Wrapf(err, "decode item field %q", key)
				}); err != nil {
					return err
				}
				v.Items = append(v.Items, it)
				return nil
			})
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode order request field %q", key)
	})
}
