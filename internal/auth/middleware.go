package auth

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/auth"
)

// Middleware resolves the Authorization bearer token, when present, and stores
// the verified subject in the request context. Requests without a valid token
// pass through anonymously; Require rejects them where needed.
func Middleware(a auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			s, err := a.Authenticate(ctx, token)
			if err != nil {
				zctx.From(ctx).Debug("Rejected bearer token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			ctx = zctx.With(auth.WithSubject(ctx, s), zap.String("subject", s.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require answers 401 for requests that carry no verified subject.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.SubjectFromContext(r.Context()); !ok {
			api.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
