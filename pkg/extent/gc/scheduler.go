package gc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/azstorecore/core/internal/logger"
)

const defaultSweepInterval = 10 * time.Minute

// Scheduler drives a Collector on a timer until stopped. A fire that
// lands while the previous sweep is still running is silently dropped
// (Sweep itself refuses to run twice concurrently); the scheduler only
// needs to not treat that as fatal.
type Scheduler struct {
	collector *Collector
	interval  time.Duration
	stop      chan struct{}
	done      chan struct{}
	started   atomic.Bool
}

// NewScheduler wraps collector with a periodic sweep timer. interval
// defaults to 10 minutes when zero or negative.
func NewScheduler(collector *Collector, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Scheduler{
		collector: collector,
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run blocks, firing a sweep every interval until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Run(ctx context.Context) {
	s.started.Store(true)
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.collector.Sweep(ctx, time.Now()); err != nil && err != ErrSweepInProgress {
				logger.ErrorCtx(ctx, "gc: scheduled sweep failed", logger.Err(err))
			}
		}
	}
}

// Stop signals Run to return and waits for it to do so. Safe to call
// even if Run was never started.
func (s *Scheduler) Stop() {
	close(s.stop)
	if s.started.Load() {
		<-s.done
	}
}
