// Package auth defines the verified identity handed to order operations.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthenticated is returned when a request carries no verified subject.
var ErrUnauthenticated = errors.New("unauthenticated")

// Subject is the verified end-user identity produced by an Authenticator.
type Subject struct {
	ID    string
	Email string
	Name  string
}

// IsZero reports whether s carries no identity.
func (s Subject) IsZero() bool {
	return s.ID == ""
}

// Authenticator verifies a bearer credential and returns its subject.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Subject, error)
}

type subjectKey struct{}

// WithSubject returns a copy of ctx carrying s.
func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFromContext returns the subject stored by WithSubject.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	s, ok := ctx.Value(subjectKey{}).(Subject)
	if !ok || s.IsZero() {
		return Subject{}, false
	}
	return s, true
}
