package controller

import (
	"reflect"
	"time"

	"github.com/ucbridge/ha-bridge/internal/entity"
	"github.com/ucbridge/ha-bridge/internal/hubclient"
	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
)

// HandleStateChanged implements hubclient.EventSink. It runs on the hub client's goroutine, so it only ever enqueues
// onto the controller's command mailbox; the catalog mutation itself happens on the controller's own goroutine.
func (c *Controller) HandleStateChanged(entityID, friendlyName, state string, attributes map[string]any, observedAt time.Time) {
	c.enqueue("state_changed", func() {
		id := entity.ID(entityID)
		before := c.catalog.Get(id).Clone()

		e, shouldWarn := c.catalog.Upsert(id, friendlyName, state, attributes, observedAt)
		if shouldWarn && c.warnings.Allow("unmapped_state", entityID) {
			c.log.Warn().Str("entity_id", entityID).Str("hub_state", state).
				Msg("hub reported a state this domain does not map; entity marked unavailable")
		}

		if before == nil || before.State != e.State || !reflect.DeepEqual(before.Attributes, e.Attributes) {
			c.fanOutEntityChange(e)
		}
	})
}

// HandleRunning implements hubclient.EventSink.
func (c *Controller) HandleRunning() {
	c.enqueue("hub_running", func() {
		c.log.Info().Int("entities", len(c.catalog.All())).Msg("hub connection established")
	})
}

// HandleDisconnected implements hubclient.EventSink. Every known entity is marked unavailable and the change is
// fanned out, so connected remotes reflect reality immediately rather than showing stale state until reconnect.
func (c *Controller) HandleDisconnected() {
	c.enqueue("hub_disconnected", func() {
		for _, e := range c.catalog.All() {
			if e.State == entity.RemoteUnavailable {
				continue
			}
			e.State = entity.RemoteUnavailable
			c.fanOutEntityChange(e)
		}
	})
}

// HandleConnectionState implements hubclient.EventSink. It tracks the bridge's own link health as a device_state
// value and, on change, pushes a device_state event to every connected remote session.
func (c *Controller) HandleConnectionState(state hubclient.State) {
	c.enqueue("connection_state", func() {
		next := deviceStateFor(state)
		if next == c.deviceState {
			return
		}
		c.deviceState = next
		c.broadcastDeviceState(next)
	})
}

// deviceStateFor maps a hub client's connection-lifecycle state onto the integration protocol's coarser device_state
// enum, which only distinguishes "connected", "connecting", "disconnected" and "error".
func deviceStateFor(state hubclient.State) integration.DeviceStateValue {
	switch state {
	case hubclient.Running:
		return integration.DeviceStateConnected
	case hubclient.Connecting, hubclient.Authenticating, hubclient.Subscribing:
		return integration.DeviceStateConnecting
	case hubclient.Backoff:
		return integration.DeviceStateError
	default:
		return integration.DeviceStateDisconnected
	}
}

// broadcastDeviceState pushes a device_state event to every connected session. Must run on the controller's own
// goroutine (called only from within an enqueued command).
func (c *Controller) broadcastDeviceState(state integration.DeviceStateValue) {
	if c.server == nil {
		return
	}
	raw, err := integration.NewDeviceStateEvent(state)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to build device_state event")
		return
	}
	for _, session := range c.server.Sessions() {
		session.SendResponse(raw)
	}
}

// fanOutEntityChange pushes an entity_change event to every session subscribed to e.ID. Must run on the controller's
// own goroutine (called only from within an enqueued command).
func (c *Controller) fanOutEntityChange(e *entity.Entity) {
	if c.server == nil {
		return
	}
	raw, err := integration.NewEntityChangeEvent(toEntityChangePayload(e))
	if err != nil {
		c.log.Error().Err(err).Str("entity_id", string(e.ID)).Msg("failed to build entity_change event")
		return
	}
	for _, sessionID := range c.subs.subscribers(string(e.ID)) {
		if session, ok := c.server.Session(sessionID); ok {
			session.SendEntityChange(string(e.ID), raw)
		}
	}
}
