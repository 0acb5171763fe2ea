package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Claims identify the signed-in user behind a request.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}

// TokenValidator resolves a bearer token to live session claims.
type TokenValidator func(ctx context.Context, token string) (*Claims, error)

// Auth rejects requests without a valid bearer token.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validate, true)
}

// OptionalAuth lets anonymous requests through. A token that is present but
// invalid is still rejected so clients notice an expired session.
func OptionalAuth(validate TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validate, false)
}

func authenticate(validate TokenValidator, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				if required {
					writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid authorization header format")
				return
			}

			claims, err := validate(r.Context(), token)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores claims on ctx.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns nil for anonymous requests.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.SessionID
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
