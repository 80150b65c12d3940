// Package app wires the application together and runs its operational
// modes:
//
//   - Worker mode: ingest classification plus alert dispatch on
//     independent tick intervals
//   - Digest mode: per-minute due-time scan across subscribers
//   - Compose mode: one-shot digest composition for a single subscriber,
//     printed to stdout
//
// Each mode runs the shared health and metrics server.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-radar/internal/core/embeddings"
	"github.com/lueurxax/news-radar/internal/core/impact"
	"github.com/lueurxax/news-radar/internal/core/llm"
	"github.com/lueurxax/news-radar/internal/gateway"
	"github.com/lueurxax/news-radar/internal/ingest"
	"github.com/lueurxax/news-radar/internal/output/digest"
	"github.com/lueurxax/news-radar/internal/platform/config"
	"github.com/lueurxax/news-radar/internal/platform/observability"
	"github.com/lueurxax/news-radar/internal/platform/worker"
	"github.com/lueurxax/news-radar/internal/process/alerts"
	"github.com/lueurxax/news-radar/internal/process/cluster"
	"github.com/lueurxax/news-radar/internal/storage"
)

const (
	orphanRetention    = 14 * 24 * time.Hour
	orphanCleanupBatch = 500
	backlogGaugePeriod = time.Minute
)

// App holds the application dependencies and runs its modes.
type App struct {
	cfg      *config.Config
	database *storage.DB
	logger   *zerolog.Logger
}

func New(cfg *config.Config, database *storage.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunWorker runs the ingest and alert loops until the context is
// canceled. With once set, each runs a single pass and returns.
func (a *App) RunWorker(ctx context.Context, once bool) error {
	analyzer := llm.New(a.cfg, a.logger)
	vectorizer := embeddings.New(a.cfg, a.logger)
	engine := cluster.NewEngine(a.database, vectorizer, analyzer, a.cfg, a.logger)
	gate := ingest.NewGate(a.database, analyzer, engine, a.cfg, a.logger)

	notifier, err := gateway.NewTelegram(a.cfg.BotToken, a.logger)
	if err != nil {
		return fmt.Errorf("telegram init: %w", err)
	}

	assessor := impact.New(a.cfg, analyzer, a.logger)
	selector := alerts.NewSelector(a.database, analyzer, assessor, notifier, a.cfg, a.logger)

	if once {
		if _, err := gate.ProcessPending(ctx); err != nil {
			return fmt.Errorf("process pending: %w", err)
		}

		if _, err := selector.SelectAndDispatch(ctx); err != nil {
			return fmt.Errorf("dispatch alerts: %w", err)
		}

		return nil
	}

	return worker.Loop(ctx, worker.Config{
		Name:         "radar-worker",
		PollInterval: a.cfg.IngestTickInterval,
		Process: func(ctx context.Context) error {
			defer worker.RecoverPanic(a.logger, "process pending")

			processed, err := gate.ProcessPending(ctx)
			if err != nil {
				return err
			}

			if processed > 0 {
				a.logger.Info().Int("items", processed).Msg("processed pending items")
			}

			return nil
		},
		PeriodicTasks: []worker.PeriodicTask{
			{
				Name:     "alert-dispatch",
				Interval: a.cfg.AlertTickInterval,
				Run: func(ctx context.Context) {
					defer worker.RecoverPanic(a.logger, "alert dispatch")

					delivered, err := selector.SelectAndDispatch(ctx)
					if err != nil {
						a.logger.Error().Err(err).Msg("alert dispatch failed")

						return
					}

					if delivered > 0 {
						a.logger.Info().Int("alerts", delivered).Msg("alerts delivered")
					}
				},
			},
			{
				Name:     "backlog-gauge",
				Interval: backlogGaugePeriod,
				Run:      a.updateBacklogGauge,
			},
			{
				Name:     "orphan-cleanup",
				Interval: 24 * time.Hour,
				Run:      a.cleanupOrphans,
			},
		},
		Logger: a.logger,
	})
}

// RunDigest runs the per-minute digest scan until the context is
// canceled. With once set, it runs a single scan and returns.
func (a *App) RunDigest(ctx context.Context, once bool) error {
	dispatcher, err := a.newDispatcher()
	if err != nil {
		return err
	}

	if once {
		sent, err := dispatcher.Tick(ctx)
		if err != nil {
			return fmt.Errorf("digest tick: %w", err)
		}

		a.logger.Info().Int("digests", sent).Msg("digest scan complete")

		return nil
	}

	return worker.Loop(ctx, worker.Config{
		Name:         "radar-digest",
		PollInterval: a.cfg.DigestTickInterval,
		Process: func(ctx context.Context) error {
			defer worker.RecoverPanic(a.logger, "digest tick")

			sent, err := dispatcher.Tick(ctx)
			if err != nil {
				return err
			}

			if sent > 0 {
				a.logger.Info().Int("digests", sent).Msg("digests delivered")
			}

			return nil
		},
		Logger: a.logger,
	})
}

// RunCompose composes one digest for a subscriber and prints the
// rendered text to stdout. Useful for previewing without delivery.
func (a *App) RunCompose(ctx context.Context, subscriberID string, mode string) error {
	if subscriberID == "" {
		return fmt.Errorf("compose mode requires --subscriber")
	}

	analyzer := llm.New(a.cfg, a.logger)
	composer := digest.NewComposer(a.database, analyzer, a.cfg, a.logger)

	entries, err := composer.Compose(ctx, subscriberID, digest.Mode(mode))
	if err != nil {
		return fmt.Errorf("compose digest: %w", err)
	}

	fmt.Fprintln(os.Stdout, digest.Render(entries, digest.Mode(mode)))

	return nil
}

func (a *App) newDispatcher() (*digest.Dispatcher, error) {
	analyzer := llm.New(a.cfg, a.logger)
	composer := digest.NewComposer(a.database, analyzer, a.cfg, a.logger)

	notifier, err := gateway.NewTelegram(a.cfg.BotToken, a.logger)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	return digest.NewDispatcher(a.database, composer, notifier, a.logger), nil
}

func (a *App) updateBacklogGauge(ctx context.Context) {
	count, err := a.database.CountPendingItems(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("counting pending items failed")

		return
	}

	observability.PendingBacklog.Set(float64(count))
}

func (a *App) cleanupOrphans(ctx context.Context) {
	deleted, err := a.database.DeleteOrphanItems(ctx, time.Now().Add(-orphanRetention), orphanCleanupBatch)
	if err != nil {
		a.logger.Warn().Err(err).Msg("orphan cleanup failed")

		return
	}

	if deleted > 0 {
		a.logger.Info().Int64("items", deleted).Msg("orphan items deleted")
	}
}
