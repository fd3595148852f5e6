package auth

import "context"

// SetHostIDForTest injects a host ID into the context for testing purposes.
func SetHostIDForTest(ctx context.Context, hostID string) context.Context {
	return context.WithValue(ctx, hostIDKey, hostID)
}
