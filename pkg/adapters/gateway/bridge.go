package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/transferdesk/pkg/ports"
)

// DefaultBridgePath is the endpoint that authorizes push-notification channels.
const DefaultBridgePath = "/pusher/auth/"

// Bridge implements ports.NotificationBridge by asking the API to authorize
// the session's push channel.
type Bridge struct {
	gw   ports.Gateway
	path string
}

// NewBridge creates a Bridge that talks through gw. An empty path uses DefaultBridgePath.
func NewBridge(gw ports.Gateway, path string) *Bridge {
	if path == "" {
		path = DefaultBridgePath
	}
	return &Bridge{gw: gw, path: path}
}

// Register authorizes the push channel for token.
func (b *Bridge) Register(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("push registration needs a session token")
	}
	if _, err := b.gw.Do(ctx, ports.Request{Method: http.MethodPost, Path: b.path, Token: token}); err != nil {
		return fmt.Errorf("push registration failed: %w", err)
	}
	return nil
}
