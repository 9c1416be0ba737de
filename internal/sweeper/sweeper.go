// Package sweeper runs the periodic token-expiry job: every interval it
// bulk-flips tokens that have passed their expiry but are still marked
// active. One failed pass is recoverable by the next, so errors are logged
// and swallowed; the loop itself only stops with its context.
package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ExpireFunc performs one expiry pass as of now and returns the number of
// rows transitioned. services.TokenService.SweepExpired satisfies it.
type ExpireFunc func(ctx context.Context) (int64, error)

// Sweeper drives ExpireFunc on a fixed interval, optionally with a second
// mid-interval pass to halve worst-case expiry latency without shortening
// the interval itself.
type Sweeper struct {
	Expire ExpireFunc

	// Interval between scheduled passes. Zero means a minute.
	Interval time.Duration

	// Splay, when > 0 and < Interval, fires one extra pass this long after
	// each scheduled one. It is a frequency knob, not a structural
	// requirement; leave it zero to disable.
	Splay time.Duration

	// Log receives per-pass outcomes. Zero value logs nowhere.
	Log zerolog.Logger

	// mu serializes passes so a slow sweep cannot overlap the next tick.
	// The update itself is idempotent, the mutex just keeps the statements
	// from piling up under load.
	mu sync.Mutex
}

// Run blocks, sweeping until ctx is cancelled. An immediate first pass runs
// before the ticker starts so restarting the process does not delay expiry
// by a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	s.sweep(ctx)
	s.maybeSplay(ctx, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
			s.maybeSplay(ctx, interval)
		}
	}
}

// maybeSplay schedules the extra mid-interval pass when configured.
func (s *Sweeper) maybeSplay(ctx context.Context, interval time.Duration) {
	if s.Splay <= 0 || s.Splay >= interval {
		return
	}
	t := time.NewTimer(s.Splay)
	go func() {
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			s.sweep(ctx)
		}
	}()
}

// sweep runs one pass. Errors are logged and dropped: the job must outlive
// any single failure.
func (s *Sweeper) sweep(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.Expire(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("token sweep failed")
		return
	}
	if n > 0 {
		s.Log.Info().Int64("expired", n).Msg("token sweep")
	} else {
		s.Log.Debug().Msg("token sweep: nothing to do")
	}
}
