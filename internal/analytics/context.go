package analytics

import "context"

type contextKey string

const clientInfoKey contextKey = "analytics.client_info"

// ClientInfo carries the request-level caller identity attached to search
// analytics events. All fields are optional.
type ClientInfo struct {
	UserID    string
	IP        string
	UserAgent string
}

// WithClientInfo returns a context carrying the caller's client info.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey, info)
}

// ClientInfoFromContext extracts client info from the context, zero-valued
// when none was attached.
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	if info, ok := ctx.Value(clientInfoKey).(ClientInfo); ok {
		return info
	}
	return ClientInfo{}
}
