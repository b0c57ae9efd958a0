// Command ha-bridge runs the integration bridge daemon: it serves the remote-control device's integration
// WebSocket protocol, translates it against a smart-home hub, and optionally advertises itself over mDNS.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/ucbridge/ha-bridge/internal/config"
	"github.com/ucbridge/ha-bridge/internal/controller"
	"github.com/ucbridge/ha-bridge/internal/discovery"
	"github.com/ucbridge/ha-bridge/internal/protocol/integration"
	"github.com/ucbridge/ha-bridge/internal/remoteserver"
	"github.com/ucbridge/ha-bridge/internal/store"
	"github.com/ucbridge/ha-bridge/internal/supervisor"
)

// version, commit and date are overwritten via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.Command{
		Name:  "ha-bridge",
		Usage: "Integration bridge between a remote-control device and a smart-home hub",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: config.ConfigFilePath("./configuration.yaml"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Show version information",
				Action: func(ctx context.Context, c *cli.Command) error {
					fmt.Printf("ha-bridge %s (commit %s, built %s)\n", version, commit, date)
					return nil
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return run(ctx, c.String("config"))
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("ha-bridge stopped")
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Logging)

	log.Info().Str("version", version).Str("config", configPath).Msg("starting ha-bridge")

	driverStore, err := store.NewDriverStore(cfg.DataHome)
	if err != nil {
		return fmt.Errorf("open driver store: %w", err)
	}

	// The YAML file takes priority; if it left hub credentials unset, fall back to whatever a prior interactive
	// setup_driver session persisted.
	if cfg.Hub.URL == "" {
		if creds, loadErr := driverStore.Load(); loadErr == nil {
			cfg.Hub.URL = creds.URL
			cfg.Hub.Token = creds.Token
			log.Info().Msg("loaded hub credentials persisted from a previous setup")
		}
	}

	build := integration.BuildInfo{Version: cfg.Integration.DriverVersion, Commit: commit, Date: date}

	ctrl := controller.New(driverStore, cfg.Hub, log)
	server := remoteserver.NewServer(ctrl, ctrl, cfg.Integration.DriverName, build, log)
	ctrl.AttachServer(server)

	addr := fmt.Sprintf("%s:%d", cfg.Integration.ListenAddr, cfg.Integration.Port)

	services := []supervisor.Service{
		{
			Name: "integration-listener",
			Run:  func(ctx context.Context) error { return remoteserver.Listen(ctx, addr, server, log) },
		},
		{
			Name: "controller",
			Run:  ctrl.Run,
		},
	}

	if cfg.Integration.AdvertiseMDNS {
		services = append(services, supervisor.Service{
			Name:     "mdns-advertiser",
			Optional: true,
			Run: func(ctx context.Context) error {
				return discovery.Advertise(ctx, cfg.Integration.DriverName, cfg.Integration.Port, version, cfg.Integration.Developer, log)
			},
		})
	}

	sup := supervisor.New(log, services...)
	return sup.Run(ctx)
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer zerolog.ConsoleWriter
	var log zerolog.Logger
	if cfg.Format == "console" {
		writer = zerolog.ConsoleWriter{Out: os.Stderr}
		log = zerolog.New(writer)
	} else {
		log = zerolog.New(os.Stderr)
	}

	return log.Level(level).With().Timestamp().Logger()
}
