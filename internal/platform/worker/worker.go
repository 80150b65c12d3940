// Package worker provides the loop abstraction shared by the ingest,
// alert and digest processes: poll-based iteration, periodic side
// tasks, context cancellation and panic recovery.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const logFieldWorker = "worker"

// ProcessFunc is called each iteration to process work items.
// It should return quickly when no work is available.
type ProcessFunc func(ctx context.Context) error

// PeriodicTask runs at its own interval alongside the main process step.
type PeriodicTask struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
	lastRun  time.Time
}

// Config configures a worker loop.
type Config struct {
	// Name identifies the worker for logging.
	Name string

	// PollInterval is the sleep between process iterations.
	PollInterval time.Duration

	// Process is called each iteration to do the main work.
	Process ProcessFunc

	// PeriodicTasks run at their configured intervals.
	PeriodicTasks []PeriodicTask

	// OnStart is called once when the loop starts.
	OnStart func(ctx context.Context)

	// OnStop is called once when the loop exits.
	OnStop func()

	// OnError is called when Process returns an error.
	// Return true to continue, false to exit the loop.
	OnError func(err error) bool

	// Logger for the worker.
	Logger *zerolog.Logger
}

// Loop runs the worker until the context is canceled or a fatal error
// occurs. Returns a wrapped context error on cancellation.
func Loop(ctx context.Context, cfg Config) error {
	logger := getLogger(cfg.Logger)
	logger.Info().Str(logFieldWorker, cfg.Name).Msg("starting worker loop")

	if cfg.OnStart != nil {
		cfg.OnStart(ctx)
	}

	defer func() {
		if cfg.OnStop != nil {
			cfg.OnStop()
		}

		logger.Info().Str(logFieldWorker, cfg.Name).Msg("worker loop stopped")
	}()

	periodicTasks := make([]PeriodicTask, len(cfg.PeriodicTasks))
	copy(periodicTasks, cfg.PeriodicTasks)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("worker loop %s: %w", cfg.Name, ctx.Err())
		default:
		}

		runPeriodicTasks(ctx, periodicTasks, logger)

		if err := runProcessStep(ctx, cfg, logger); err != nil {
			return err
		}

		if err := Wait(ctx, cfg.PollInterval); err != nil {
			return err
		}
	}
}

func runPeriodicTasks(ctx context.Context, tasks []PeriodicTask, logger *zerolog.Logger) {
	now := time.Now()

	for i := range tasks {
		task := &tasks[i]
		if task.Interval <= 0 || task.Run == nil {
			continue
		}

		if now.Sub(task.lastRun) >= task.Interval {
			logger.Debug().Str("task", task.Name).Msg("running periodic task")
			task.Run(ctx)
			task.lastRun = now
		}
	}
}

func runProcessStep(ctx context.Context, cfg Config, logger *zerolog.Logger) error {
	if cfg.Process == nil {
		return nil
	}

	if err := cfg.Process(ctx); err != nil {
		if cfg.OnError != nil {
			if !cfg.OnError(err) {
				return err
			}

			return nil
		}

		logger.Error().Err(err).Str(logFieldWorker, cfg.Name).Msg("process error")
	}

	return nil
}

// Wait blocks until the duration elapses or the context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-time.After(d):
		return nil
	}
}

// RecoverPanic recovers from panics and logs them.
// Use as: defer worker.RecoverPanic(logger, "operation name")
func RecoverPanic(logger *zerolog.Logger, operation string) {
	if r := recover(); r != nil {
		logger.Error().
			Interface("panic", r).
			Str("operation", operation).
			Msg("recovered from panic")
	}
}

func getLogger(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()

		return &nop
	}

	return logger
}
