package controller

import (
	"context"
	"fmt"

	"github.com/fasthttp/websocket"

	"github.com/ucbridge/ha-bridge/internal/remoteserver"
	"github.com/ucbridge/ha-bridge/internal/store"

	protohub "github.com/ucbridge/ha-bridge/internal/protocol/hub"
)

var _ remoteserver.HubProber = (*Controller)(nil)

// HasCredentials implements remoteserver.HubProber.
func (c *Controller) HasCredentials() bool {
	c.hubMu.Lock()
	defer c.hubMu.Unlock()
	return c.hubCfg.URL != "" && c.hubCfg.Token != ""
}

// ProbeAndApply implements remoteserver.HubProber: it validates the offered credentials with a one-shot handshake
// (independent of the long-lived hub client's own state machine), and only on success persists them and restarts the
// real client against the new configuration.
func (c *Controller) ProbeAndApply(ctx context.Context, url, token string) error {
	if err := probeHub(ctx, url, token); err != nil {
		return err
	}

	if c.store != nil {
		if err := c.store.Save(store.Credentials{URL: url, Token: token}); err != nil {
			return fmt.Errorf("persist hub credentials: %w", err)
		}
	}

	c.hubMu.Lock()
	c.hubCfg.URL = url
	c.hubCfg.Token = token
	root := c.rootCtx
	c.hubMu.Unlock()

	if root != nil {
		c.startHub(root)
	}
	return nil
}

// probeHub performs the first half of the hub handshake (dial, auth_required, auth, auth_ok/invalid) against a
// throwaway connection, without subscribing to anything, so bad credentials are rejected during setup instead of only
// surfacing once the long-lived client is started with them.
func probeHub(ctx context.Context, url, token string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	msgType, _, err := protohub.Peek(raw)
	if err != nil {
		return fmt.Errorf("decode auth_required: %w", err)
	}
	if msgType != protohub.TypeAuthRequired {
		return fmt.Errorf("expected auth_required, got %q", msgType)
	}

	authMsg, err := protohub.NewAuthMessage(token)
	if err != nil {
		return fmt.Errorf("build auth message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, authMsg); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	_, raw, err = conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}
	msgType, _, err = protohub.Peek(raw)
	if err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	switch msgType {
	case protohub.TypeAuthOK:
		return nil
	case protohub.TypeAuthInvalid:
		return remoteserver.ErrHubAuthRejected
	default:
		return fmt.Errorf("expected auth_ok or auth_invalid, got %q", msgType)
	}
}
