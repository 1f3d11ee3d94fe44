package middleware

import (
	"context"
)

type contextKey string

const userIDKey contextKey = "middleware.user_id"

// WithUserID stores the caller's user ID in the context. Upstream gateways
// forward the authenticated identity via the X-User-ID header; this service
// only observes it (for logging and search analytics), it performs no
// authentication of its own.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the caller's user ID, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
