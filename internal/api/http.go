package api

import (
	"net/http"

	"github.com/go-faster/jx"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v Encoder) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	v.Encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// WriteError writes an Error body.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, &Error{Code: status, Message: message})
}
