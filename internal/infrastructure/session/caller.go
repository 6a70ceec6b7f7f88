package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenCookie carries the caller's token when no Authorization header is sent
const AccessTokenCookie = "access_token"

var (
	// ErrMissingToken is returned when the request carries no credentials
	ErrMissingToken = errors.New("missing access token")
	// ErrInvalidToken is returned for tokens that fail verification
	ErrInvalidToken = errors.New("invalid or expired access token")
)

// Authenticator identifies the staff member behind an HTTP request. Tokens
// are HS256 access tokens signed by the hospital backend.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an authenticator. An empty secret rejects every
// request.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(strings.TrimSpace(secret))}
}

// Enabled reports whether a signing secret is configured
func (a *Authenticator) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// Authenticate verifies the request's bearer token or access cookie
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	raw := requestToken(r)
	if raw == "" {
		return nil, ErrMissingToken
	}
	if !a.Enabled() {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if exp, err := claims.GetExpirationTime(); err != nil || exp == nil {
		return nil, fmt.Errorf("%w: no expiry", ErrInvalidToken)
	}

	// Refresh tokens never authorize requests
	if kind, ok := claims["type"].(string); ok && kind != "access" {
		return nil, fmt.Errorf("%w: token type %q", ErrInvalidToken, kind)
	}

	identity := identityFromClaims(claims)
	if identity.UserID == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return identity, nil
}

func requestToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
			return strings.TrimSpace(header[7:])
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

type identityKey struct{}

// WithIdentity stores the caller's identity in ctx
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller stored by WithIdentity
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
