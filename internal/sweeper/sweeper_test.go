package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// countingExpire returns an ExpireFunc that counts invocations.
func countingExpire(calls *atomic.Int64, err error) ExpireFunc {
	return func(context.Context) (int64, error) {
		calls.Add(1)
		if err != nil {
			return 0, err
		}
		return 1, nil
	}
}

func TestSweeper_ImmediateFirstPass(t *testing.T) {
	var calls atomic.Int64
	s := &Sweeper{
		Expire:   countingExpire(&calls, nil),
		Interval: time.Hour, // ticker never fires during the test
		Log:      zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no pass ran before the first tick")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestSweeper_TicksRepeatedly(t *testing.T) {
	var calls atomic.Int64
	s := &Sweeper{
		Expire:   countingExpire(&calls, nil),
		Interval: 10 * time.Millisecond,
		Log:      zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d passes ran", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestSweeper_SplayAddsMidIntervalPass(t *testing.T) {
	var calls atomic.Int64
	s := &Sweeper{
		Expire:   countingExpire(&calls, nil),
		Interval: time.Hour,
		Splay:    10 * time.Millisecond,
		Log:      zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// immediate pass plus the splayed one, well before any tick
	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("splay pass missing, %d passes ran", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSweeper_SplayAtOrAboveIntervalIsIgnored(t *testing.T) {
	var calls atomic.Int64
	s := &Sweeper{
		Expire:   countingExpire(&calls, nil),
		Interval: 20 * time.Millisecond,
		Splay:    20 * time.Millisecond, // not strictly inside the interval
		Log:      zerolog.Nop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// 0ms, 20ms, 40ms scheduled passes; a working splay would roughly
	// double that
	if n := calls.Load(); n > 4 {
		t.Fatalf("%d passes with disabled splay", n)
	}
}

func TestSweeper_SurvivesExpireErrors(t *testing.T) {
	var calls atomic.Int64
	s := &Sweeper{
		Expire:   countingExpire(&calls, errors.New("db gone")),
		Interval: 10 * time.Millisecond,
		Log:      zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// the loop keeps ticking past repeated failures
	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("loop stalled after %d failing passes", calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestSweeper_StopsImmediatelyOnCancelledContext(t *testing.T) {
	var calls atomic.Int64
	s := &Sweeper{
		Expire:   countingExpire(&calls, nil),
		Interval: time.Hour,
		Log:      zerolog.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return for a cancelled context")
	}
	// the immediate pass still runs once before the loop observes ctx
	if n := calls.Load(); n != 1 {
		t.Fatalf("%d passes ran, want exactly the immediate one", n)
	}
}
