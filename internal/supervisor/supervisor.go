// Package supervisor starts and stops the bridge's long-running services together: the integration WebSocket
// listener, the controller actor, and (optionally) mDNS advertisement. It turns OS termination signals into a single
// cancellation that every service shuts down against, and tells apart a fatal service failure from an expected one.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// drainTimeout bounds how long Run waits, after shutdown begins, for every service goroutine to return before giving
// up and returning anyway.
const drainTimeout = 5 * time.Second

// Service is one long-running component. Run must block until ctx is canceled, returning nil in that case; any other
// return is treated as a failure.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
	// Optional marks a service whose failure should be logged and swallowed rather than torn the whole process down
	// for. Used for the mDNS advertiser, whose failure is never itself a reason to stop serving remotes.
	Optional bool
}

// Supervisor runs a fixed set of services to completion together, under a context canceled either by a caller, an OS
// termination signal, or the first fatal service failure.
type Supervisor struct {
	services []Service
	log      zerolog.Logger
}

// New builds a supervisor for the given services. Order does not matter: every service starts concurrently.
func New(log zerolog.Logger, services ...Service) *Supervisor {
	return &Supervisor{services: services, log: log.With().Str("component", "supervisor").Logger()}
}

// Run starts every service, blocks until ctx is canceled (by the caller or by SIGINT/SIGTERM) or a non-optional
// service fails, then waits up to drainTimeout for all services to return. It returns the first fatal error
// encountered, or nil on a clean shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fatal   error
		stopped = make(chan struct{})
	)

	for _, svc := range s.services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			err := svc.Run(runCtx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				return
			case svc.Optional:
				s.log.Error().Err(err).Str("service", svc.Name).Msg("optional service stopped; continuing without it")
			default:
				mu.Lock()
				if fatal == nil {
					fatal = fmt.Errorf("%s: %w", svc.Name, err)
				}
				mu.Unlock()
				cancel()
			}
		}(svc)
	}

	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-runCtx.Done():
		s.log.Info().Msg("shutting down, draining services")
		cancel()
		select {
		case <-stopped:
		case <-time.After(drainTimeout):
			s.log.Warn().Dur("timeout", drainTimeout).Msg("services did not stop within the drain deadline")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	return fatal
}
