// Package hubclient maintains the bridge's single outbound WebSocket connection to the smart-home hub: handshake,
// event subscription, heartbeat, request/response correlation, and automatic reconnection with backoff.
package hubclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/ucbridge/ha-bridge/internal/config"
	protohub "github.com/ucbridge/ha-bridge/internal/protocol/hub"
)

const (
	requestTimeout = 10 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Client owns one hub WebSocket session and its explicit state machine. A single goroutine runs Run; readPump,
// writePump and the heartbeat ticker are spawned per connection attempt and torn down together when the connection
// drops.
type Client struct {
	cfg  config.HubConfig
	sink EventSink
	log  zerolog.Logger

	backoff *backoff

	mu           sync.RWMutex
	state        State
	runningSince time.Time

	conn *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	pending *pendingTable
}

// NewClient constructs a hub client in the Disconnected state. Call Run to start connecting.
func NewClient(cfg config.HubConfig, sink EventSink, log zerolog.Logger) *Client {
	return &Client{
		cfg:     cfg,
		sink:    sink,
		log:     log.With().Str("component", "hubclient").Logger(),
		backoff: newBackoff(cfg.ReconnectMinBackoff, cfg.ReconnectMaxBackoff),
		state:   Disconnected,
	}
}

// State returns the client's current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	from := c.state
	c.state = s
	c.mu.Unlock()
	if err := transition(from, s); err != nil {
		c.log.Warn().Err(err).Msg("state transition not in the declared edge set")
	}
	c.sink.HandleConnectionState(s)
}

// Run connects, re-connects with exponential backoff on failure, and blocks until ctx is canceled. It never returns
// a non-nil error for ordinary disconnects; those are retried internally and only observable via State() and the
// EventSink callbacks.
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			c.setState(Disconnected)
			return nil
		}

		startedAt := time.Now()
		err := c.runOnce(ctx)
		c.mu.RLock()
		runningSince := c.runningSince
		c.mu.RUnlock()
		if runningSince.After(startedAt) {
			c.backoff.NoteRunningDuration(time.Since(runningSince))
		}

		if ctx.Err() != nil {
			c.setState(Disconnected)
			return nil
		}

		if errors.Is(err, ErrAuthFailed) {
			c.log.Error().Err(err).Msg("hub rejected authentication token; not retrying until credentials change")
			c.sink.HandleDisconnected()
			c.setState(Disconnected)
			return err
		}

		if err != nil {
			c.log.Warn().Err(err).Msg("hub connection lost")
		}
		c.sink.HandleDisconnected()
		c.setState(Backoff)

		delay := c.backoff.Next()
		c.log.Info().Dur("delay", delay).Msg("reconnecting to hub")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.setState(Disconnected)
			return nil
		}
	}
}

// runOnce performs one full connection attempt: dial, handshake, subscribe, initial snapshot, then Running until the
// connection drops or ctx is canceled.
func (c *Client) runOnce(ctx context.Context) error {
	c.setState(Connecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}
	conn.SetReadLimit(maxMessageSize)

	c.mu.Lock()
	c.conn = conn
	c.send = make(chan []byte, 32)
	c.done = make(chan struct{})
	c.closeOnce = sync.Once{}
	c.pending = newPendingTable()
	c.mu.Unlock()

	defer func() {
		c.closeDone()
		_ = conn.Close()
		c.pending.failAll()
	}()

	if err := c.handshake(ctx); err != nil {
		return err
	}

	c.setState(Running)
	c.mu.Lock()
	c.runningSince = time.Now()
	c.mu.Unlock()
	c.sink.HandleRunning()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); c.readPump() }()
	go func() { defer wg.Done(); c.writePump() }()
	go c.heartbeatLoop()

	select {
	case <-c.done:
	case <-ctx.Done():
		c.closeDone()
	}
	wg.Wait()
	return nil
}

// handshake performs the synchronous auth_required -> auth -> auth_ok -> subscribe_events -> get_states sequence
// before any background goroutines are started, since the protocol requires a strict ordering up front.
func (c *Client) handshake(ctx context.Context) error {
	c.setState(Authenticating)

	_, raw, err := c.conn.ReadMessage()
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

	authMsg, err := protohub.NewAuthMessage(c.cfg.Token)
	if err != nil {
		return fmt.Errorf("build auth message: %w", err)
	}
	if err := c.writeRaw(authMsg); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	_, raw, err = c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("read auth response: %w", err)
	}
	msgType, _, err = protohub.Peek(raw)
	if err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	switch msgType {
	case protohub.TypeAuthOK:
	case protohub.TypeAuthInvalid:
		return ErrAuthFailed
	default:
		return fmt.Errorf("expected auth_ok or auth_invalid, got %q", msgType)
	}

	c.setState(Subscribing)

	subID, subAwait, subCancel := c.pending.register(requestTimeout)
	defer subCancel()
	subMsg, err := protohub.NewSubscribeEventsMessage(subID, "state_changed")
	if err != nil {
		return fmt.Errorf("build subscribe_events: %w", err)
	}
	if err := c.writeRaw(subMsg); err != nil {
		return fmt.Errorf("send subscribe_events: %w", err)
	}
	if err := c.readUntilResult(subID); err != nil {
		return fmt.Errorf("read subscribe_events result: %w", err)
	}
	if raw := <-subAwait; raw == nil {
		return ErrTimeout
	} else if res, err := protohub.DecodeResult(raw); err != nil {
		return err
	} else if !res.Success {
		return fmt.Errorf("hub rejected subscribe_events: %s", res.Error.Message)
	}

	statesID, statesAwait, statesCancel := c.pending.register(requestTimeout)
	defer statesCancel()
	statesMsg, err := protohub.NewGetStatesMessage(statesID)
	if err != nil {
		return fmt.Errorf("build get_states: %w", err)
	}
	if err := c.writeRaw(statesMsg); err != nil {
		return fmt.Errorf("send get_states: %w", err)
	}
	if err := c.readUntilResult(statesID); err != nil {
		return fmt.Errorf("read get_states result: %w", err)
	}
	raw = <-statesAwait
	if raw == nil {
		return ErrTimeout
	}
	res, err := protohub.DecodeResult(raw)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("hub rejected get_states: %s", res.Error.Message)
	}
	states, err := protohub.DecodeGetStatesResult(res.Result)
	if err != nil {
		return fmt.Errorf("decode get_states snapshot: %w", err)
	}
	for _, s := range states {
		c.sink.HandleStateChanged(s.EntityID, "", s.State, s.Attributes, parseHubTimestamp(s.LastUpdated, s.LastChanged))
	}

	return nil
}

// parseHubTimestamp resolves the observation time a hub state reports, preferring last_updated (the field that
// changes on any attribute update) and falling back to last_changed. Returns the zero Time if neither parses, which
// the catalog treats as "unknown" and never rejects as stale.
func parseHubTimestamp(lastUpdated, lastChanged string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, lastUpdated); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, lastChanged); err == nil {
		return t
	}
	return time.Time{}
}

// readUntilResult reads and discards frames from the handshake's synchronous connection until it sees the result
// frame for wantID, delivering it to the pending table. It is only used before readPump takes over.
func (c *Client) readUntilResult(wantID uint32) error {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		msgType, id, err := protohub.Peek(raw)
		if err != nil {
			continue
		}
		if msgType == protohub.TypeResult && id == wantID {
			c.pending.complete(id, raw)
			return nil
		}
	}
}

// readPump runs for the Running phase, dispatching event/result/pong frames to the pending table or the EventSink.
func (c *Client) readPump() {
	defer c.closeDone()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug().Err(err).Msg("hub read error")
			return
		}

		msgType, id, err := protohub.Peek(raw)
		if err != nil {
			c.log.Warn().Err(err).Msg("malformed hub frame")
			continue
		}

		switch msgType {
		case protohub.TypeResult, protohub.TypePong:
			c.pending.complete(id, raw)
		case protohub.TypeEvent:
			c.handleEvent(raw)
		default:
			c.log.Debug().Str("type", string(msgType)).Msg("unhandled hub message type")
		}
	}
}

func (c *Client) handleEvent(raw []byte) {
	ev, err := protohub.DecodeEvent(raw)
	if err != nil {
		c.log.Warn().Err(err).Msg("malformed event frame")
		return
	}
	if ev.Event.EventType != "state_changed" {
		return
	}
	data, err := protohub.DecodeStateChanged(ev.Event.Data)
	if err != nil {
		c.log.Warn().Err(err).Msg("malformed state_changed data")
		return
	}
	if data.NewState == nil {
		return
	}
	c.sink.HandleStateChanged(data.EntityID, "", data.NewState.State, data.NewState.Attributes,
		parseHubTimestamp(data.NewState.LastUpdated, data.NewState.LastChanged))
}

// writePump drains the send channel onto the connection until done is closed, then exits. Unlike a server-facing
// session, there is no backpressure-drop policy here: the hub client is the only writer and its traffic volume
// (requests plus heartbeats) is bounded by the caller.
func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			if err := c.writeRaw(msg); err != nil {
				c.log.Debug().Err(err).Msg("hub write error")
				c.closeDone()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) writeRaw(msg []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// heartbeatLoop pings the hub at cfg.PingInterval and triggers a disconnect if no pong arrives within
// cfg.PongTimeout.
func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			id, await, cancel := c.pending.register(c.cfg.PongTimeout)
			msg, err := protohub.NewPingMessage(id)
			if err != nil {
				cancel()
				continue
			}
			select {
			case c.send <- msg:
			case <-c.done:
				cancel()
				return
			}
			go func() {
				if raw := <-await; raw == nil {
					c.log.Warn().Msg("heartbeat timeout, closing hub connection")
					c.closeDone()
				}
			}()
		case <-c.done:
			return
		}
	}
}

// CallService sends a call_service request and waits for the hub's result, translating failure/timeout into the
// package's sentinel errors. Valid only while the client is Running.
func (c *Client) CallService(ctx context.Context, domain, service string, data map[string]any) error {
	if c.State() != Running {
		return ErrNotConnected
	}

	id, await, cancel := c.pending.register(requestTimeout)
	defer cancel()

	msg, err := protohub.NewCallServiceMessage(id, domain, service, data)
	if err != nil {
		return fmt.Errorf("build call_service: %w", err)
	}

	select {
	case c.send <- msg:
	case <-c.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case raw := <-await:
		if raw == nil {
			return ErrTimeout
		}
		res, err := protohub.DecodeResult(raw)
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("hub rejected %s.%s: %s", domain, service, res.Error.Message)
		}
		return nil
	case <-c.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) closeDone() {
	c.mu.RLock()
	done := c.done
	c.mu.RUnlock()
	if done == nil {
		return
	}
	c.closeOnce.Do(func() { close(done) })
}
