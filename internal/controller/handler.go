package controller

import (
	"context"
	"errors"
	"time"

	"github.com/ucbridge/ha-bridge/internal/entity"
	"github.com/ucbridge/ha-bridge/internal/hubclient"
	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
	"github.com/ucbridge/ha-bridge/internal/remoteserver"
)

// commandTimeout bounds how long an entity_command's call_service round trip to the hub is allowed to take before
// the remote is told the command failed.
const commandTimeout = 10 * time.Second

var _ remoteserver.Handler = (*Controller)(nil)

// OnConnect implements remoteserver.Handler. It is called when a session completes setup_driver; the remote drives the
// rest of the exchange with explicit requests, so there is nothing to push proactively.
func (c *Controller) OnConnect(s *remoteserver.Session) {
	c.log.Debug().Stringer("session_id", s.ID).Msg("session ready")
}

// OnDisconnect implements remoteserver.Handler, clearing every subscription the session held.
func (c *Controller) OnDisconnect(s *remoteserver.Session) {
	c.enqueue("disconnect", func() {
		c.subs.unsubscribeAllForSession(s.ID)
	})
}

// OnGetAvailableEntities implements remoteserver.Handler.
func (c *Controller) OnGetAvailableEntities(s *remoteserver.Session, id uint32) {
	c.enqueue("get_available_entities", func() {
		entities := c.catalog.All()
		out := make([]integration.AvailableEntity, 0, len(entities))
		for _, e := range entities {
			out = append(out, toAvailableEntity(e, c.registry, c.log))
		}
		raw, err := integration.NewAvailableEntitiesResponse(id, out)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to build available_entities response")
			return
		}
		s.SendResponse(raw)
	})
}

// OnSubscribeEvents implements remoteserver.Handler. An empty entityIDs list means "subscribe to everything
// currently known".
func (c *Controller) OnSubscribeEvents(s *remoteserver.Session, id uint32, entityIDs []string) {
	c.enqueue("subscribe_events", func() {
		if len(entityIDs) == 0 {
			entityIDs = idsOf(c.catalog.All())
		}
		c.subs.subscribeAll(s.ID, entityIDs)
		c.ackOK(s, id)
	})
}

// OnUnsubscribeEvents implements remoteserver.Handler. An empty entityIDs list means "unsubscribe from everything".
func (c *Controller) OnUnsubscribeEvents(s *remoteserver.Session, id uint32, entityIDs []string) {
	c.enqueue("unsubscribe_events", func() {
		if len(entityIDs) == 0 {
			c.subs.unsubscribeAllForSession(s.ID)
		} else {
			for _, eid := range entityIDs {
				c.subs.unsubscribe(s.ID, eid)
			}
		}
		c.ackOK(s, id)
	})
}

// OnGetEntityStates implements remoteserver.Handler. Unknown entity IDs are skipped rather than failing the whole
// request, since a remote polling a mixed set shouldn't lose the entities that do exist.
func (c *Controller) OnGetEntityStates(s *remoteserver.Session, id uint32, entityIDs []string) {
	c.enqueue("get_entity_states", func() {
		var entities []*entity.Entity
		if len(entityIDs) == 0 {
			entities = c.catalog.All()
		} else {
			for _, eid := range entityIDs {
				if e := c.catalog.Get(entity.ID(eid)); e != nil {
					entities = append(entities, e)
				}
			}
		}
		out := make([]integration.EntityStateSnapshot, 0, len(entities))
		for _, e := range entities {
			out = append(out, toEntityStateSnapshot(e))
		}
		raw, err := integration.NewEntityStatesResponse(id, out)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to build entity_states response")
			return
		}
		s.SendResponse(raw)
	})
}

// OnEntityCommand implements remoteserver.Handler. Translation (catalog lookup, domain routing) happens on the
// controller's own goroutine; the resulting hub round trip is dispatched to its own goroutine so a slow or hung
// call_service never stalls catalog access for other sessions.
func (c *Controller) OnEntityCommand(s *remoteserver.Session, id uint32, cmd *integration.EntityCommandPayload) {
	c.enqueue("entity_command", func() {
		eid := entity.ID(cmd.EntityID)
		e, err := c.lookupEntity(eid)
		if err != nil {
			c.replyError(s, id, err)
			return
		}

		hc := c.hubClient()
		if hc == nil || hc.State() != hubclient.Running {
			c.replyError(s, id, ErrHubNotConnected)
			return
		}

		service, data, err := c.registry.Command(eid, e.Domain, entity.RemoteCommand(cmd.CmdID), cmd.Params)
		if err != nil {
			c.replyError(s, id, err)
			return
		}

		domain := string(e.Domain)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()
			if err := hc.CallService(ctx, domain, service, data); err != nil {
				if c.warnings.Allow("call_service_failed", cmd.EntityID) {
					c.log.Warn().Err(err).Str("entity_id", cmd.EntityID).Msg("call_service failed")
				}
				c.replyError(s, id, err)
				return
			}
			c.ackOK(s, id)
		}()
	})
}

// OnConnectRequest implements remoteserver.Handler. The bridge maintains a single hub connection regardless of how
// many remotes are attached, so a protocol-level "connect" from a remote has nothing further to trigger.
func (c *Controller) OnConnectRequest(s *remoteserver.Session, id uint32) {
	c.enqueue("connect", func() { c.ackOK(s, id) })
}

// OnDisconnectRequest implements remoteserver.Handler.
func (c *Controller) OnDisconnectRequest(s *remoteserver.Session, id uint32) {
	c.enqueue("disconnect_request", func() { c.ackOK(s, id) })
}

// OnEnterStandby implements remoteserver.Handler.
func (c *Controller) OnEnterStandby(s *remoteserver.Session, id uint32) {
	c.enqueue("enter_standby", func() { c.ackOK(s, id) })
}

// OnExitStandby implements remoteserver.Handler.
func (c *Controller) OnExitStandby(s *remoteserver.Session, id uint32) {
	c.enqueue("exit_standby", func() { c.ackOK(s, id) })
}

// OnGetDeviceState implements remoteserver.Handler, answering with the bridge's current view of its own hub
// connection health.
func (c *Controller) OnGetDeviceState(s *remoteserver.Session, id uint32) {
	c.enqueue("get_device_state", func() {
		raw, err := integration.NewDeviceStateResponse(id, c.deviceState)
		if err != nil {
			c.log.Error().Err(err).Msg("failed to build device_state response")
			return
		}
		s.SendResponse(raw)
	})
}

func (c *Controller) ackOK(s *remoteserver.Session, id uint32) {
	raw, err := integration.NewOKResponse(id)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to build result response")
		return
	}
	s.SendResponse(raw)
}

func (c *Controller) replyError(s *remoteserver.Session, id uint32, err error) {
	raw, buildErr := integration.NewErrorResponse(id, resultCodeFor(err), err.Error())
	if buildErr != nil {
		c.log.Error().Err(buildErr).Msg("failed to build error response")
		return
	}
	s.SendResponse(raw)
}

// resultCodeFor maps a sentinel error from the translation/command-routing or hub-client layers onto the
// integration protocol's symbolic result code, so remotes see "NOT_FOUND"/"TIMEOUT"/... instead of free text alone.
func resultCodeFor(err error) integration.ResultCode {
	switch {
	case errors.Is(err, ErrEntityUnknown), errors.Is(err, entity.ErrEntityUnknown):
		return integration.CodeNotFound
	case errors.Is(err, ErrHubNotConnected), errors.Is(err, hubclient.ErrNotConnected):
		return integration.CodeNotConnected
	case errors.Is(err, hubclient.ErrTimeout):
		return integration.CodeTimeout
	case errors.Is(err, entity.ErrNotSupported), errors.Is(err, entity.ErrUnknownDomain):
		return integration.CodeNotSupported
	case errors.Is(err, entity.ErrBadParameter):
		return integration.CodeBadParameter
	default:
		return integration.CodeHubError
	}
}

func idsOf(entities []*entity.Entity) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, string(e.ID))
	}
	return out
}
