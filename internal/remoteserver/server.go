// Package remoteserver accepts and manages the remote-control device's WebSocket connections: one Session per
// connection, each running its own read/write pumps and setup-lifecycle state machine, registered in a Server that
// the controller queries for fan-out.
package remoteserver

import (
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
)

// Server is the registry of active sessions. It does not itself understand the integration protocol's message
// semantics; it exists so the controller can iterate live sessions for fan-out and so a session can be looked up by
// ID when a command response needs routing back to its origin.
type Server struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	handler    Handler
	prober     HubProber
	driverName string
	build      integration.BuildInfo
	log        zerolog.Logger
}

// NewServer creates an empty session registry.
func NewServer(handler Handler, prober HubProber, driverName string, build integration.BuildInfo, log zerolog.Logger) *Server {
	return &Server{
		sessions:   make(map[uuid.UUID]*Session),
		handler:    handler,
		prober:     prober,
		driverName: driverName,
		build:      build,
		log:        log.With().Str("component", "remoteserver").Logger(),
	}
}

// ServeWebSocket adopts an upgraded connection as a new session: it registers the session, starts its pumps, and
// blocks until the connection closes (mirroring the gateway's readPump-owns-the-goroutine convention).
func (srv *Server) ServeWebSocket(conn *websocket.Conn) {
	session := NewSession(conn, srv.handler, srv.prober, srv.driverName, srv.build, srv.log)

	srv.Register(session)
	defer srv.Unregister(session.ID)

	go session.writePump()
	session.readPump()
}

// Register adds a session to the registry. ServeWebSocket is the only ordinary caller; exported so tests can wire a
// session built with NewSession without a real network connection.
func (srv *Server) Register(session *Session) {
	srv.mu.Lock()
	srv.sessions[session.ID] = session
	srv.mu.Unlock()
	srv.log.Debug().Stringer("session_id", session.ID).Msg("session registered")
}

// Unregister removes a session from the registry.
func (srv *Server) Unregister(id uuid.UUID) {
	srv.mu.Lock()
	delete(srv.sessions, id)
	srv.mu.Unlock()
	srv.log.Debug().Stringer("session_id", id).Msg("session unregistered")
}

// Sessions returns a snapshot of currently connected sessions, safe to range over without holding any lock.
func (srv *Server) Sessions() []*Session {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	out := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		out = append(out, s)
	}
	return out
}

// Session looks up a connected session by ID.
func (srv *Server) Session(id uuid.UUID) (*Session, bool) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	s, ok := srv.sessions[id]
	return s, ok
}

// Shutdown closes every connected session so the listener can drain cleanly.
func (srv *Server) Shutdown() {
	srv.mu.RLock()
	sessions := make([]*Session, 0, len(srv.sessions))
	for _, s := range srv.sessions {
		sessions = append(sessions, s)
	}
	srv.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
