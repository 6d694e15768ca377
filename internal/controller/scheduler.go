package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler polls the current view on an interval. A tick is skipped when a
// fetch for the current key is already in flight, so ticks never queue up
// behind a slow backend.
type Scheduler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	tick   func(ctx context.Context) bool
}

// NewScheduler creates a scheduler around a tick callback. The callback
// reports whether it actually issued a fetch.
func NewScheduler(tick func(ctx context.Context) bool) *Scheduler {
	return &Scheduler{tick: tick}
}

// Start begins ticking every interval. Idempotent: starting a running
// scheduler does not create a second timer.
func (s *Scheduler) Start(interval time.Duration) {
	if interval <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.loop(ctx, interval)
	slog.Debug("auto refresh started", "interval", interval)
}

// Stop cancels the interval. Safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		slog.Debug("auto refresh stopped")
	}
}

// Running reports whether the scheduler is currently ticking.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx) {
				slog.Debug("auto refresh tick skipped: fetch in flight")
			}
		}
	}
}
