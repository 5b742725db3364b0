package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"homesync/pkg/api"
	"homesync/pkg/clock"
	"homesync/pkg/config"
	"homesync/pkg/device/schema"
	"homesync/pkg/metrics"
	"homesync/pkg/notify"
	"homesync/pkg/relayboard"
	"homesync/pkg/store"
	"homesync/pkg/syncer"
)

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (default: built-in defaults)")
	dbPath := flag.String("db", "", "Path to database file (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	log.Info().
		Str("timezone", cfg.Timezone).
		Str("listen", cfg.Listen).
		Dur("tick_interval", cfg.TickInterval.Std()).
		Msg("Configuration loaded")

	// Open store
	gateway, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close store")
		}
	}()

	log.Info().Str("path", gateway.Path()).Msg("Store opened")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := gateway.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run store migrations")
	}

	m := metrics.New()
	clk := clock.System(cfg.Location())

	// Push delivery; without an endpoint, transitions are only logged.
	var sender notify.Sender = notify.NopSender{}
	if cfg.NotifyURL != "" {
		webhook, err := notify.NewWebhookSender(cfg.NotifyURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure push delivery")
		}
		sender = webhook
	} else {
		log.Warn().Msg("No notify_url configured, notifications disabled")
	}
	notifier := notify.New(sender, m, cfg.StoreTimeout.Std())

	// Optional relay board mirror; the store stays authoritative either way.
	var mirror syncer.Mirror
	if cfg.RelayBoard.Port != "" {
		board, err := relayboard.Open(cfg.RelayBoard.Port, cfg.RelayBoard.Baud)
		if err != nil {
			log.Warn().Err(err).Str("port", cfg.RelayBoard.Port).
				Msg("Relay board unavailable, continuing without hardware mirror")
		} else {
			defer func() {
				if err := board.Close(); err != nil {
					log.Error().Err(err).Msg("Failed to close relay board")
				}
			}()
			mirror = board
		}
	}

	engine, err := syncer.New(syncer.Options{
		Store:        gateway,
		Clock:        clk,
		Notifier:     notifier,
		Metrics:      m,
		Mirror:       mirror,
		Interval:     cfg.TickInterval.Std(),
		StoreTimeout: cfg.StoreTimeout.Std(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build synchronizer")
	}

	// Start API server
	router := api.NewRouter(gateway, schema.NewValidator(), clk, m)
	go func() {
		log.Info().Str("address", cfg.Listen).Msg("Starting API server")
		if err := router.Run(cfg.Listen); err != nil {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Run the synchronizer until a shutdown signal arrives; in-flight
	// writes of the current cycle complete before Run returns.
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Synchronizer failed")
	}

	log.Info().Msg("Shutting down...")
}
