package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/app"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (worker, digest, compose)")
	once := flag.Bool("once", false, "Run once and exit (worker and digest modes)")
	subscriber := flag.String("subscriber", "", "Subscriber ID (compose mode)")
	digestMode := flag.String("digest-mode", "main", "Digest mode (compose mode): main, tech-update, industry-report")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poolOpts := storage.PoolOptions{
		MaxConns:          cfg.DBMaxConnections,
		MinConns:          cfg.DBMinConnections,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	}

	database, err := storage.New(ctx, cfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *once, *subscriber, *digestMode); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, once bool, subscriber, digestMode string) error {
	switch mode {
	case "worker":
		return application.RunWorker(ctx, once)
	case "digest":
		return application.RunDigest(ctx, once)
	case "compose":
		return application.RunCompose(ctx, subscriber, digestMode)
	default:
		log.Fatalf("Usage: %s --mode=[worker|digest|compose]", os.Args[0])

		return nil
	}
}
