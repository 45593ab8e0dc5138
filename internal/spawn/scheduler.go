package spawn

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// ModeRunner runs one planning pass.
type ModeRunner interface {
	Run(ctx context.Context, mode string) (*Result, error)
}

// Scheduler repeats a planning mode on a fixed interval.
type Scheduler struct {
	runner   ModeRunner
	mode     string
	interval time.Duration
	onResult func(*Result)

	runs     atomic.Int32
	failures atomic.Int32
}

// NewScheduler creates a scheduler. onResult, if not nil, receives every
// successful result.
func NewScheduler(runner ModeRunner, mode string, interval time.Duration, onResult func(*Result)) *Scheduler {
	return &Scheduler{
		runner:   runner,
		mode:     mode,
		interval: interval,
		onResult: onResult,
	}
}

// Start runs the mode once immediately and then on every tick. Blocks until
// ctx is canceled. Failed passes are logged and retried on the next tick.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("planning scheduler started", "mode", s.mode, "interval", s.interval)

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("planning scheduler stopping", "runs", s.Runs(), "failures", s.Failures())
			return ctx.Err()

		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.runner.Run(ctx, s.mode)
	s.runs.Add(1)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.failures.Add(1)
		slog.Error("scheduled planning run failed", "mode", s.mode, "error", err)
		return
	}
	if s.onResult != nil {
		s.onResult(res)
	}
}

// Runs returns the number of passes attempted.
func (s *Scheduler) Runs() int {
	return int(s.runs.Load())
}

// Failures returns the number of passes that returned an error.
func (s *Scheduler) Failures() int {
	return int(s.failures.Load())
}
