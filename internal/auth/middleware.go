package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package, so
// no other package can read or shadow the values we store.
type contextKey string

const identityKey contextKey = "identity"

// Identity is what the middleware extracts from a validated access token
// and makes available to handlers.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// RequireAuth enforces authentication on protected routes.
//
// It reads the access token from the Authorization header ("Bearer
// <token>"), validates it, and stores the caller's Identity in the
// request context. Missing or invalid tokens end the chain with 401.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractClaims(r, tokens)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "Bearer")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ident := Identity{
				UserID: claims.Subject,
				Email:  claims.Email,
				Role:   claims.Role,
			}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated caller's identity, or
// false if the request carried no valid token.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok && ident.UserID != ""
}

func extractClaims(r *http.Request, tokens *TokenService) (*Claims, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, errors.New("auth: missing bearer token")
	}
	return tokens.Validate(strings.TrimSpace(header[len(prefix):]))
}
