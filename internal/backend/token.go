package backend

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type tokenContextKey struct{}

// WithToken stores the bearer token to use for outgoing requests.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext extracts the bearer token, empty when unauthenticated.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// TokenExpiry reads the exp claim of the backend-issued access token without
// verifying the signature; verification is the backend's job, the console only
// needs the expiry to size the session lifetime.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
