// Package pacing spaces sequential external API calls with a fixed minimum
// interval so providers' request-per-second ceilings are respected by
// construction rather than by ad hoc sleeps.
package pacing

import (
	"context"
	"sync"
	"time"
)

// Scheduler enforces a minimum interval between successive Wait calls.
// The zero interval disables pacing. Scheduler is safe for concurrent use,
// serializing callers onto the shared cadence.
type Scheduler struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewScheduler builds a scheduler with the provided minimum interval.
func NewScheduler(interval time.Duration) *Scheduler {
	return &Scheduler{
		interval: interval,
		now:      time.Now,
		sleep:    sleepWithContext,
	}
}

// Interval returns the configured minimum spacing.
func (s *Scheduler) Interval() time.Duration {
	if s == nil {
		return 0
	}
	return s.interval
}

// Wait blocks until at least the configured interval has elapsed since the
// previous Wait returned, or until the context is cancelled. The first call
// never blocks.
func (s *Scheduler) Wait(ctx context.Context) error {
	if s == nil || s.interval <= 0 {
		return ctx.Err()
	}

	s.mu.Lock()
	now := s.now()
	var delay time.Duration
	if !s.last.IsZero() {
		if elapsed := now.Sub(s.last); elapsed < s.interval {
			delay = s.interval - elapsed
		}
	}
	s.last = now.Add(delay)
	s.mu.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}
	return s.sleep(ctx, delay)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
