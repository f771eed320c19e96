package ports

import "context"

// NotificationBridge registers an authenticated session with the
// push-notification service. Failures never affect the session.
type NotificationBridge interface {
	Register(ctx context.Context, token string) error
}
