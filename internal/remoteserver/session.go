package remoteserver

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Handler is implemented by the controller and receives every post-setup request a session forwards. Session itself
// only owns the wire-level concerns (framing, mailbox, setup FSM); all entity/command semantics live in the
// controller, which is the catalog's single writer.
type Handler interface {
	OnConnect(s *Session)
	OnDisconnect(s *Session)
	OnGetAvailableEntities(s *Session, id uint32)
	OnSubscribeEvents(s *Session, id uint32, entityIDs []string)
	OnUnsubscribeEvents(s *Session, id uint32, entityIDs []string)
	OnGetEntityStates(s *Session, id uint32, entityIDs []string)
	OnEntityCommand(s *Session, id uint32, cmd *integration.EntityCommandPayload)
	OnConnectRequest(s *Session, id uint32)
	OnDisconnectRequest(s *Session, id uint32)
	OnEnterStandby(s *Session, id uint32)
	OnExitStandby(s *Session, id uint32)
	OnGetDeviceState(s *Session, id uint32)
}

// Session is one remote-control device's WebSocket connection. It runs readPump and writePump goroutines, modeled on
// a client/hub gateway pair, but mediates outbound traffic through a mailbox instead of a plain channel so that
// entity-change backpressure can be handled per-entity rather than by disconnecting the session.
type Session struct {
	ID uuid.UUID

	conn       *websocket.Conn
	mailbox    *mailbox
	handler    Handler
	prober     HubProber
	driverName string
	build      integration.BuildInfo
	log        zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	state SessionState
}

// NewSession constructs a session wrapping an upgraded WebSocket connection. Exported so other packages can build
// fixtures in tests; ordinary wiring only ever reaches it through Server.ServeWebSocket.
func NewSession(conn *websocket.Conn, handler Handler, prober HubProber, driverName string, build integration.BuildInfo, log zerolog.Logger) *Session {
	id := uuid.New()
	s := &Session{
		ID:         id,
		conn:       conn,
		mailbox:    newMailbox(),
		handler:    handler,
		prober:     prober,
		driverName: driverName,
		build:      build,
		log:        log.With().Str("component", "remoteserver").Str("session_id", id.String()).Logger(),
		done:       make(chan struct{}),
		state:      Connected,
	}
	if prober != nil && !prober.HasCredentials() {
		s.state = SetupRequired
	}
	return s
}

// State returns the session's current setup-lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(to SessionState) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()
	if err := sessionTransition(from, to); err != nil {
		s.log.Warn().Err(err).Msg("state transition not in the declared edge set")
	}
}

// SendResponse enqueues a frame that must not be dropped (a reply, an ack, a setup progress event).
func (s *Session) SendResponse(raw []byte) {
	s.mailbox.pushResponse(raw)
}

// SendEntityChange enqueues an entity_change event, coalescing with any not-yet-flushed update for the same entity.
func (s *Session) SendEntityChange(entityID string, raw []byte) {
	s.mailbox.pushEntityEvent(entityID, raw)
}

// Drain empties the outbound mailbox, returning every frame queued since the last drain. Exposed so callers that
// don't run a writePump against a real connection (tests, and the controller's own unit tests) can observe what a
// session would have sent.
func (s *Session) Drain() [][]byte {
	return s.mailbox.drain()
}

// DroppedChanges returns the number of entity_change events this session has lost to mailbox-capacity eviction,
// for diagnostics.
func (s *Session) DroppedChanges() int64 {
	return s.mailbox.DroppedChanges()
}

// Close begins session shutdown; safe to call multiple times and from multiple goroutines.
func (s *Session) Close() {
	s.setState(Closing)
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Session) readPump() {
	defer func() {
		s.handler.OnDisconnect(s)
		s.Close()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("integration WebSocket read error")
			}
			return
		}

		frame, err := integration.Decode(raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("malformed integration frame")
			continue
		}

		s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame *integration.Frame) {
	switch frame.Msg {
	case integration.MsgGetDriverMetadata:
		s.handleGetDriverMetadata(frame.ID)
	case integration.MsgGetDeviceState:
		s.handler.OnGetDeviceState(s, frame.ID)
	case integration.MsgGetAvailableEntities:
		s.handler.OnGetAvailableEntities(s, frame.ID)
	case integration.MsgSubscribeEvents:
		sub, err := integration.DecodeSubscribeEvents(frame.MsgData)
		if err != nil {
			s.replyError(frame.ID, err)
			return
		}
		s.handler.OnSubscribeEvents(s, frame.ID, sub.EntityIDs)
	case integration.MsgUnsubscribeEvents:
		sub, err := integration.DecodeSubscribeEvents(frame.MsgData)
		if err != nil {
			s.replyError(frame.ID, err)
			return
		}
		s.handler.OnUnsubscribeEvents(s, frame.ID, sub.EntityIDs)
	case integration.MsgGetEntityStates:
		sub, err := integration.DecodeSubscribeEvents(frame.MsgData)
		if err != nil {
			s.replyError(frame.ID, err)
			return
		}
		s.handler.OnGetEntityStates(s, frame.ID, sub.EntityIDs)
	case integration.MsgEntityCommand:
		cmd, err := integration.DecodeEntityCommand(frame.MsgData)
		if err != nil {
			s.replyError(frame.ID, err)
			return
		}
		s.handler.OnEntityCommand(s, frame.ID, cmd)
	case integration.MsgConnect:
		s.handler.OnConnectRequest(s, frame.ID)
	case integration.MsgDisconnect:
		s.handler.OnDisconnectRequest(s, frame.ID)
	case integration.MsgEnterStandby:
		s.handler.OnEnterStandby(s, frame.ID)
	case integration.MsgExitStandby:
		s.handler.OnExitStandby(s, frame.ID)
	case integration.MsgSetupDriver:
		s.handleSetupDriver(frame.ID, frame.MsgData)
	case integration.MsgSetDriverUserData:
		s.handleSetDriverUserData(frame.ID, frame.MsgData)
	case integration.MsgAbortDriverSetup:
		s.handleAbortDriverSetup(frame.ID)
	default:
		s.log.Debug().Str("msg", frame.Msg).Msg("unhandled integration message")
	}
}

func (s *Session) handleGetDriverMetadata(id uint32) {
	raw, err := integration.NewDriverVersionResponse(id, s.driverName, s.build)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build driver_version response")
		return
	}
	s.SendResponse(raw)
}

// replyError answers a request rejected before it reaches the handler (a payload that did not decode, or a setup
// message out of sequence), always with BAD_PARAMETER.
func (s *Session) replyError(id uint32, err error) {
	s.replyErrorCode(id, integration.CodeBadParameter, err)
}

// replyErrorCode answers a request with a specific symbolic result code, for callers that already know which one
// applies (e.g. a setup credential probe classifying AUTH vs. a generic hub error).
func (s *Session) replyErrorCode(id uint32, code integration.ResultCode, err error) {
	raw, buildErr := integration.NewErrorResponse(id, code, err.Error())
	if buildErr != nil {
		s.log.Error().Err(buildErr).Msg("failed to build error response")
		return
	}
	s.SendResponse(raw)
}

// writePump drains the mailbox onto the connection whenever it wakes, until done is closed.
func (s *Session) writePump() {
	defer func() { _ = s.conn.Close() }()

	for {
		select {
		case <-s.mailbox.wake:
			for _, raw := range s.mailbox.drain() {
				_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					s.log.Debug().Err(err).Msg("integration WebSocket write error")
					s.Close()
					return
				}
			}
		case <-s.done:
			for _, raw := range s.mailbox.drain() {
				_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if s.conn.WriteMessage(websocket.TextMessage, raw) != nil {
					return
				}
			}
			return
		}
	}
}
