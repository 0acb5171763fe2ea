package middleware

import (
	"log/slog"
	"net/http"

	"github.com/smogalia/list-gift/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation, user, session and trace ids. Mount it after RequestLogging,
// Tracing and the auth middleware so all of them are visible.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if c := ClaimsFromContext(ctx); c != nil {
				ctx = logger.WithUserID(ctx, c.UserID)
				ctx = logger.WithSessionID(ctx, c.SessionID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
