// Package auth verifies bearer tokens and attaches the resulting subject to
// request contexts.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sambamart/storefront/internal/domain/auth"
)

var _ auth.Authenticator = (*JWT)(nil)

// Claims are the token claims understood by JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Config configures a JWT authenticator.
type Config struct {
	// Secret is the HS256 signing key.
	Secret []byte
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Audience, when set, must be present in the aud claim.
	Audience string
	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// JWT is an HS256 bearer token authenticator.
type JWT struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
	parser   *jwt.Parser
}

// NewJWT creates a JWT authenticator.
func NewJWT(cfg Config) (*JWT, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.Now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWT{
		secret:   cfg.Secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
		parser:   jwt.NewParser(opts...),
	}, nil
}

// Authenticate verifies token and returns its subject. Every failure wraps
// auth.ErrUnauthenticated.
func (j *JWT) Authenticate(_ context.Context, token string) (auth.Subject, error) {
	var claims Claims
	if _, err := j.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}); err != nil {
		return auth.Subject{}, errors.Wrapf(auth.ErrUnauthenticated, "parse token: %v", err)
	}
	if claims.Subject == "" {
		return auth.Subject{}, errors.Wrap(auth.ErrUnauthenticated, "token has no subject")
	}

	return auth.Subject{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// Issue signs a token for s valid for ttl.
func (j *JWT) Issue(s auth.Subject, ttl time.Duration) (string, error) {
	if s.IsZero() {
		return "", errors.New("subject id is required")
	}

	now := j.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: s.Email,
		Name:  s.Name,
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
