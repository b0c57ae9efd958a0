// Package controller is the bridge's central actor: it owns the entity catalog (the catalog's only writer), the
// per-session subscription registry, and the long-lived hub client, translating between the two wire protocols and
// fanning hub events out to subscribed remote sessions.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ucbridge/ha-bridge/internal/config"
	"github.com/ucbridge/ha-bridge/internal/entity"
	"github.com/ucbridge/ha-bridge/internal/hubclient"
	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
	"github.com/ucbridge/ha-bridge/internal/ratelimit"
	"github.com/ucbridge/ha-bridge/internal/remoteserver"
	"github.com/ucbridge/ha-bridge/internal/store"
)

// warnWindow bounds how often the same recurring problem (one error code against one entity) is logged.
const warnWindow = 60 * time.Second

// mailboxCapacity bounds the controller's own command queue. Entries are closures capturing one piece of work
// (a hub event, a session request); the controller is their single consumer, so the catalog and subscription
// registry never need their own locks.
const mailboxCapacity = 4096

// Controller is the catalog's single writer, reached only through its command mailbox. Every public method that
// touches catalog or subscription state enqueues a closure instead of mutating directly.
type Controller struct {
	log      zerolog.Logger
	registry *entity.Registry
	catalog  *entity.Catalog
	subs     *subscriptions
	server   *remoteserver.Server
	store    *store.DriverStore
	warnings *ratelimit.Limiter

	// deviceState mirrors the hub client's connection state as the integration protocol's device_state value.
	// Touched only from within enqueued commands, so it needs no lock of its own.
	deviceState integration.DeviceStateValue

	cmds chan func()

	hubMu   sync.Mutex
	hubCfg  config.HubConfig
	client  *hubclient.Client
	cancel  context.CancelFunc
	rootCtx context.Context
}

// New builds a controller. hubCfg may have an empty URL/Token if no credentials have been configured yet; the
// controller will not start a hub client until credentials are present, either from hubCfg or from a later
// ProbeAndApply. Callers must call AttachServer once the remoteserver.Server wrapping this controller exists, since
// the two have a construction-order cycle (the server needs a Handler/HubProber, which is this controller).
func New(driverStore *store.DriverStore, hubCfg config.HubConfig, log zerolog.Logger) *Controller {
	registry := entity.NewRegistry()
	return &Controller{
		log:         log.With().Str("component", "controller").Logger(),
		registry:    registry,
		catalog:     entity.NewCatalog(registry),
		subs:        newSubscriptions(),
		store:       driverStore,
		warnings:    ratelimit.New(warnWindow),
		deviceState: integration.DeviceStateDisconnected,
		cmds:        make(chan func(), mailboxCapacity),
		hubCfg:      hubCfg,
	}
}

// AttachServer wires the session registry the controller fans entity changes out through. Must be called before Run.
func (c *Controller) AttachServer(server *remoteserver.Server) {
	c.server = server
}

// enqueue submits a closure to the controller's single-consumer command loop. It never blocks: a full mailbox drops
// the command and logs loudly, since the consumer only ever stalls under a bug, not ordinary load.
func (c *Controller) enqueue(name string, fn func()) {
	select {
	case c.cmds <- fn:
	default:
		c.log.Error().Str("command", name).Msg("controller mailbox full, dropping command")
	}
}

// Run drains the command mailbox and, if credentials are already available, starts the hub client. It blocks until
// ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	c.hubMu.Lock()
	c.rootCtx = ctx
	hasCreds := c.hubCfg.URL != "" && c.hubCfg.Token != ""
	c.hubMu.Unlock()
	if hasCreds {
		c.startHub(ctx)
	}

	for {
		select {
		case cmd := <-c.cmds:
			cmd()
		case <-ctx.Done():
			c.hubMu.Lock()
			if c.cancel != nil {
				c.cancel()
			}
			c.hubMu.Unlock()
			return nil
		}
	}
}

// startHub launches a new hub client bound to a child context of parent, replacing any previously running one.
// Callers must not hold hubMu.
func (c *Controller) startHub(parent context.Context) {
	c.hubMu.Lock()
	defer c.hubMu.Unlock()
	c.startHubLocked(parent)
}

func (c *Controller) startHubLocked(parent context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	hubCtx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.client = hubclient.NewClient(c.hubCfg, c, c.log)
	client := c.client
	go func() {
		if err := client.Run(hubCtx); err != nil {
			c.log.Error().Err(err).Msg("hub client exited")
		}
	}()
}

// hubClient returns the currently active hub client, or nil if none has been started.
func (c *Controller) hubClient() *hubclient.Client {
	c.hubMu.Lock()
	defer c.hubMu.Unlock()
	return c.client
}

// barrier blocks until every command enqueued before it has been processed, by enqueuing a no-op behind them and
// waiting for it to run. The mailbox is FIFO and single-consumer, so this is a correct synchronization point for
// tests that need to observe the effect of an asynchronous handler call.
func (c *Controller) barrier() {
	done := make(chan struct{})
	c.enqueue("barrier", func() { close(done) })
	<-done
}

// lookupEntity resolves the catalog entity for an ID, reporting ErrEntityUnknown if absent.
func (c *Controller) lookupEntity(id entity.ID) (*entity.Entity, error) {
	e := c.catalog.Get(id)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntityUnknown, id)
	}
	return e, nil
}
