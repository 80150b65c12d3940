package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var iterations atomic.Int32

	done := make(chan error, 1)

	go func() {
		done <- Loop(ctx, Config{
			Name:         "test",
			PollInterval: time.Millisecond,
			Process: func(_ context.Context) error {
				iterations.Add(1)
				return nil
			},
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancel")
	}

	if iterations.Load() == 0 {
		t.Fatal("expected at least one process iteration")
	}
}

func TestLoopOnErrorFatal(t *testing.T) {
	boom := errors.New("boom")

	err := Loop(context.Background(), Config{
		Name:         "test",
		PollInterval: time.Millisecond,
		Process: func(_ context.Context) error {
			return boom
		},
		OnError: func(_ error) bool {
			return false
		},
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestLoopRunsPeriodicTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32

	go func() {
		_ = Loop(ctx, Config{
			Name:         "test",
			PollInterval: time.Millisecond,
			PeriodicTasks: []PeriodicTask{
				{
					Name:     "tick",
					Interval: 5 * time.Millisecond,
					Run: func(_ context.Context) {
						runs.Add(1)
					},
				},
			},
		})
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	if runs.Load() < 2 {
		t.Fatalf("expected periodic task to run at least twice, got %d", runs.Load())
	}
}

func TestWaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitZeroDuration(t *testing.T) {
	if err := Wait(context.Background(), 0); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
