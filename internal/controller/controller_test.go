package controller

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ucbridge/ha-bridge/internal/config"
	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
	"github.com/ucbridge/ha-bridge/internal/remoteserver"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c := New(nil, config.HubConfig{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	server := remoteserver.NewServer(c, c, "ha-bridge", integration.BuildInfo{Version: "0.1.0"}, zerolog.Nop())
	c.AttachServer(server)

	return c
}

func newTestSession(c *Controller) *remoteserver.Session {
	s := remoteserver.NewSession(nil, c, c, "ha-bridge", integration.BuildInfo{Version: "0.1.0"}, zerolog.Nop())
	return s
}

func decodeMsgData[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var frame integration.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	var payload T
	if err := json.Unmarshal(frame.MsgData, &payload); err != nil {
		t.Fatalf("unmarshal msg_data: %v", err)
	}
	return payload
}

func TestHandleStateChangedPopulatesCatalog(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", map[string]any{"brightness": float64(255)}, time.Time{})
	c.barrier()

	all := c.catalog.All()
	if len(all) != 1 {
		t.Fatalf("catalog has %d entities, want 1", len(all))
	}
	if all[0].State != "ON" {
		t.Errorf("State = %q, want ON", all[0].State)
	}
}

func TestGetAvailableEntitiesReturnsCatalogSnapshot(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("switch.fan", "Fan", "on", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)

	c.OnGetAvailableEntities(session, 7)
	c.barrier()

	out := session.Drain()
	if len(out) != 1 {
		t.Fatalf("drain() len = %d, want 1", len(out))
	}
	payload := decodeMsgData[integration.AvailableEntitiesPayload](t, out[0])
	if len(payload.Entities) != 1 || payload.Entities[0].EntityID != "switch.fan" {
		t.Errorf("Entities = %+v, want one entry for switch.fan", payload.Entities)
	}
}

func TestSubscribeEventsThenStateChangeFansOut(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "off", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)

	c.OnSubscribeEvents(session, 1, nil)
	c.barrier()
	session.Drain() // discard the subscribe ack

	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.barrier()

	out := session.Drain()
	if len(out) != 1 {
		t.Fatalf("drain() len = %d, want 1 entity_change event", len(out))
	}
	payload := decodeMsgData[integration.EntityChangePayload](t, out[0])
	if payload.State != "ON" {
		t.Errorf("State = %q, want ON", payload.State)
	}
}

func TestUnchangedStateDoesNotFanOut(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)
	c.OnSubscribeEvents(session, 1, nil)
	c.barrier()
	session.Drain()

	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.barrier()

	if out := session.Drain(); len(out) != 0 {
		t.Errorf("drain() len = %d, want 0 for a no-op state report", len(out))
	}
}

func TestDisconnectMarksEntitiesUnavailableAndFansOut(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)
	c.OnSubscribeEvents(session, 1, nil)
	c.barrier()
	session.Drain()

	c.HandleDisconnected()
	c.barrier()

	out := session.Drain()
	if len(out) != 1 {
		t.Fatalf("drain() len = %d, want 1 unavailable entity_change", len(out))
	}
	payload := decodeMsgData[integration.EntityChangePayload](t, out[0])
	if payload.State != "UNAVAILABLE" {
		t.Errorf("State = %q, want UNAVAILABLE", payload.State)
	}
}

func TestResyncAfterReconnectEmitsEveryEntityLeavingUnavailable(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.HandleStateChanged("switch.fan", "Fan", "on", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)
	c.OnSubscribeEvents(session, 1, nil)
	c.barrier()
	session.Drain()

	c.HandleDisconnected()
	c.barrier()
	session.Drain()

	// Reconnect snapshot: kitchen light comes back as it was (no visible change beyond unavailable->on), fan comes
	// back off (a real change from its pre-disconnect "on"). Both leave UNAVAILABLE, so both are emitted.
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.HandleStateChanged("switch.fan", "Fan", "off", nil, time.Time{})
	c.barrier()

	out := session.Drain()
	if len(out) != 2 {
		t.Fatalf("drain() len = %d, want 2 (both differ from the unavailable snapshot)", len(out))
	}
}

func TestUnsubscribeEventsStopsFanOut(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "off", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)
	c.OnSubscribeEvents(session, 1, []string{"light.kitchen"})
	c.barrier()
	session.Drain()

	c.OnUnsubscribeEvents(session, 2, nil)
	c.barrier()
	session.Drain()

	c.HandleStateChanged("light.kitchen", "Kitchen Light", "on", nil, time.Time{})
	c.barrier()

	if out := session.Drain(); len(out) != 0 {
		t.Errorf("drain() len = %d, want 0 after unsubscribe", len(out))
	}
}

func TestOnDisconnectClearsSubscriptions(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "off", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)
	c.OnSubscribeEvents(session, 1, nil)
	c.barrier()

	c.OnDisconnect(session)
	c.barrier()

	if subs := c.subs.subscribers("light.kitchen"); len(subs) != 0 {
		t.Errorf("subscribers(light.kitchen) = %v, want none after disconnect", subs)
	}
}

func TestEntityCommandWithoutHubConnectionReturnsError(t *testing.T) {
	t.Parallel()
	c := newTestController(t)
	c.HandleStateChanged("light.kitchen", "Kitchen Light", "off", nil, time.Time{})
	c.barrier()

	session := newTestSession(c)
	c.server.Register(session)

	c.OnEntityCommand(session, 1, &integration.EntityCommandPayload{EntityID: "light.kitchen", CmdID: "ON"})
	c.barrier()

	out := session.Drain()
	if len(out) != 1 {
		t.Fatalf("drain() len = %d, want 1 error response", len(out))
	}
	result := decodeMsgData[integration.ResultPayload](t, out[0])
	if !strings.Contains(result.Message, "hub is not connected") {
		t.Errorf("Message = %q, want it to mention the hub is not connected", result.Message)
	}
	if result.Code != integration.CodeNotConnected {
		t.Errorf("Code = %q, want %q", result.Code, integration.CodeNotConnected)
	}
}

func TestEntityCommandUnknownEntityReturnsError(t *testing.T) {
	t.Parallel()
	c := newTestController(t)

	session := newTestSession(c)
	c.server.Register(session)

	c.OnEntityCommand(session, 1, &integration.EntityCommandPayload{EntityID: "light.nonexistent", CmdID: "ON"})
	c.barrier()

	out := session.Drain()
	if len(out) != 1 {
		t.Fatalf("drain() len = %d, want 1 error response", len(out))
	}
	result := decodeMsgData[integration.ResultPayload](t, out[0])
	if !strings.Contains(result.Message, "entity unknown") {
		t.Errorf("Message = %q, want it to mention entity unknown", result.Message)
	}
	if result.Code != integration.CodeNotFound {
		t.Errorf("Code = %q, want %q", result.Code, integration.CodeNotFound)
	}
}
