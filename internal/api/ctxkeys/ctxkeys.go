// Package ctxkeys holds the shared context keys for the API layer.
// Extracted to a leaf package to avoid import cycles between api and
// api/middleware/handlers.
package ctxkeys

import "context"

// Key is the unexported named type for all API context keys. A named type
// avoids collisions with string keys from other packages (context.Value
// compares both type and value).
type Key string

const (
	// UserID is the resolved principal id for the request. Injected by the
	// principal middleware, read by every history handler.
	UserID Key = "user_id"

	// UserName is the resolved principal display name.
	UserName Key = "user_name"

	// DefenderUserJSON is the opaque content-safety user blob attached to
	// outbound model calls. Empty when the integration is disabled.
	DefenderUserJSON Key = "defender_user_json"
)

// WithValue adds a ctxkeys.Key value to the context.
func WithValue(ctx context.Context, key Key, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value reads a ctxkeys.Key value from the context, empty when absent.
func Value(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
