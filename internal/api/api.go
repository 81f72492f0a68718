// Package api holds the JSON wire types of the storefront HTTP API together
// with their jx encoders and decoders. The server, the catalog cache and the
// terminal client share these types so that the wire format is defined once.
package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encoder is implemented by every wire type.
type Encoder interface {
	Encode(e *jx.Encoder)
}

// Decoder is implemented by pointers to every wire type.
type Decoder interface {
	Decode(d *jx.Decoder) error
}

// Marshal encodes v into a new byte slice.
func Marshal(v Encoder) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	v.Encode(e)
	return append([]byte(nil), e.Bytes()...)
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v Decoder) error {
	return v.Decode(jx.DecodeBytes(data))
}

// decodeArr decodes a JSON array, calling fn for every element. A JSON null
// is treated as an empty array.
func decodeArr(d *jx.Decoder, fn func(d *jx.Decoder) error) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	return errors.Wrap(d.Arr(fn), "decode array")
}

// Error is the body of every non-2xx response.
type Error struct {
	Code    int
	Message string
}

// Encode implements Encoder.
func (v *Error) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(v.Code)
	e.FieldStart("message")
	e.Str(v.Message)
	e.ObjEnd()
}

// Decode implements Decoder.
func (v *Error) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			v.Code, err = d.Int()
		case "message":
			v.Message, err = d.Str()
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode field %q", key)
	})
}
