package api

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/sambamart/storefront/internal/domain/auth"
)

// User is the wire form of an authenticated subject.
type User struct {
	ID    string
	Email string
	Name  string
}

// OptNilUser is a User that encodes as JSON null when unset.
type OptNilUser struct {
	Value User
	Set   bool
}

// NewOptNilUser converts s, leaving the result unset for a zero subject.
func NewOptNilUser(s auth.Subject) OptNilUser {
	if s.IsZero() {
		return OptNilUser{}
	}
	return OptNilUser{Value: User(s), Set: true}
}

// Get returns the user and whether it is set.
func (o OptNilUser) Get() (User, bool) {
	return o.Value, o.Set
}

// Encode implements Encoder.
func (o *OptNilUser) Encode(e *jx.Encoder) {
	if !o.Set {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.Value.ID)
	if o.Value.Email != "" {
		e.FieldStart("email")
		e.Str(o.Value.Email)
	}
	if o.Value.Name != "" {
		e.FieldStart("name")
		e.Str(o.Value.Name)
	}
	e.ObjEnd()
}

// Decode implements Decoder.
func (o *OptNilUser) Decode(d *jx.Decoder) error {
	*o = OptNilUser{}
	if d.Next() == jx.Null {
		return d.Null()
	}
	o.Set = true
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.Value.ID, err = d.Str()
		case "email":
			o.Value.Email, err = decodeOptStr(d)
		case "name":
			o.Value.Name, err = decodeOptStr(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "decode user field %q", key)
	})
}
