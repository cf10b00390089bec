package retry

import (
	"context"
	"sync"
	"time"
)

// Sleeper suspends the caller. It is the only suspension point of a collection run,
// injected so tests can replace wall-clock sleeps.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ContextSleeper sleeps on a timer and returns early when ctx is done.
var ContextSleeper Sleeper = SleeperFunc(Wait)

// Wait waits for the specified duration or until the context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordingSleeper returns immediately and remembers every requested duration.
type RecordingSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

// NewRecordingSleeper creates an empty RecordingSleeper.
func NewRecordingSleeper() *RecordingSleeper {
	return &RecordingSleeper{}
}

func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Calls returns the recorded durations in order.
func (r *RecordingSleeper) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many sleeps of exactly d were requested.
func (r *RecordingSleeper) Count(d time.Duration) int {
	n := 0
	for _, c := range r.Calls() {
		if c == d {
			n++
		}
	}
	return n
}

// Total is the sum of all recorded sleeps.
func (r *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, c := range r.Calls() {
		total += c
	}
	return total
}
