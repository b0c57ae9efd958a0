package remoteserver

import (
	"context"
	"fmt"
	"time"

	fiberws "github.com/gofiber/contrib/v3/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

// shutdownTimeout bounds how long Listen waits for in-flight sessions to drain once ctx is canceled.
const shutdownTimeout = 15 * time.Second

// Listen starts the fiber app that upgrades incoming connections on addr to integration WebSocket sessions, and
// blocks until ctx is canceled.
func Listen(ctx context.Context, addr string, srv *Server, log zerolog.Logger) error {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/", fiberws.New(func(conn *fiberws.Conn) {
		srv.ServeWebSocket(conn.Conn)
	}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("integration listener: %w", err)
	case <-ctx.Done():
		srv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("integration listener shutdown did not complete cleanly")
		}
		return nil
	}
}
