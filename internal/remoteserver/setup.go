package remoteserver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
)

// probeTimeout bounds how long a setup_driver credential check is allowed to take before the remote is told setup
// failed, so a hung dial during interactive setup doesn't leave the wizard stuck.
const probeTimeout = 15 * time.Second

// HubProber lets a session validate and persist hub credentials offered during interactive driver setup without
// giving the session direct control over the bridge's long-lived hub client. The controller implements this by
// running a short-lived probe connection and, on success, reconfiguring (and persisting) the real one.
type HubProber interface {
	// HasCredentials reports whether the bridge already has a usable hub URL and token, so a freshly connected
	// session starts Connected instead of SetupRequired and is not asked for setup on every reconnect.
	HasCredentials() bool

	// ProbeAndApply dials the hub with the given URL and token, and if the handshake succeeds, persists and applies
	// them as the bridge's active hub configuration.
	ProbeAndApply(ctx context.Context, url, token string) error
}

func (s *Session) handleSetupDriver(id uint32, msgData json.RawMessage) {
	if s.State() == Ready {
		s.replyError(id, ErrAlreadyReady)
		return
	}

	payload, err := integration.DecodeSetupDriver(msgData)
	if err != nil {
		s.replyError(id, err)
		return
	}

	s.setState(SetupRequired)
	s.emitSetupChange(integration.SetupStart, integration.SetupStateOK, "", integration.CodeOK, nil)

	url := payload.SetupData["url"]
	token := payload.SetupData["token"]
	if url == "" || token == "" {
		s.setState(SetupInProgress)
		s.emitSetupChange(integration.SetupProgress, integration.SetupStateNeedUserAction, "", integration.CodeOK, map[string]any{
			"input": map[string]string{"url": "Hub WebSocket URL", "token": "Long-Lived Access Token"},
		})
		s.SendResponse(mustOK(id))
		return
	}

	s.completeSetup(id, url, token)
}

func (s *Session) handleSetDriverUserData(id uint32, msgData json.RawMessage) {
	if s.State() != SetupInProgress {
		s.replyError(id, ErrSetupRequired)
		return
	}

	payload, err := integration.DecodeSetDriverUserData(msgData)
	if err != nil {
		s.replyError(id, err)
		return
	}
	if !payload.Confirm && len(payload.InputValues) == 0 {
		s.replyError(id, ErrSetupFailed)
		return
	}

	url := payload.InputValues["url"]
	token := payload.InputValues["token"]
	s.completeSetup(id, url, token)
}

func (s *Session) completeSetup(id uint32, url, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if err := s.prober.ProbeAndApply(ctx, url, token); err != nil {
		code := integration.CodeHubError
		if errors.Is(err, ErrHubAuthRejected) {
			code = integration.CodeAuth
		}
		s.emitSetupChange(integration.SetupComplete, integration.SetupStateError, err.Error(), code, nil)
		s.replyErrorCode(id, code, err)
		s.setState(SetupRequired)
		return
	}

	s.setState(Ready)
	s.emitSetupChange(integration.SetupComplete, integration.SetupStateOK, "", integration.CodeOK, nil)
	s.SendResponse(mustOK(id))
	s.handler.OnConnect(s)
}

func (s *Session) handleAbortDriverSetup(id uint32) {
	s.emitSetupChange(integration.SetupComplete, integration.SetupStateError, "setup aborted", integration.CodeAborted, nil)
	s.setState(SetupRequired)
	s.SendResponse(mustOK(id))
}

func (s *Session) emitSetupChange(eventType integration.DriverSetupChangeEventType, state integration.DriverSetupChangeState, errMsg string, code integration.ResultCode, requireUserAction map[string]any) {
	raw, err := integration.NewDriverSetupChangeEvent(integration.DriverSetupChangePayload{
		EventType:         eventType,
		State:             state,
		Error:             errMsg,
		Code:              code,
		RequireUserAction: requireUserAction,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build driver_setup_change event")
		return
	}
	s.SendResponse(raw)
}

func mustOK(id uint32) []byte {
	raw, err := integration.NewOKResponse(id)
	if err != nil {
		// NewOKResponse only fails if ResultPayload cannot be marshaled, which cannot happen for a fixed struct.
		return nil
	}
	return raw
}
