package ratelimit

import (
	"context"
	"time"

	"twitsent/pkg/retry"
)

// Pacer sleeps a fixed delay after each successful request when enabled.
type Pacer struct {
	delay   time.Duration
	enabled bool
	sleeper retry.Sleeper
}

// NewPacer creates a pacer. A disabled pacer or a non-positive delay never sleeps.
func NewPacer(delay time.Duration, enabled bool, sleeper retry.Sleeper) *Pacer {
	if sleeper == nil {
		sleeper = retry.ContextSleeper
	}
	return &Pacer{delay: delay, enabled: enabled, sleeper: sleeper}
}

// Pace blocks for the pacing delay.
func (p *Pacer) Pace(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.sleeper.Sleep(ctx, p.delay)
}

// Enabled reports whether Pace sleeps.
func (p *Pacer) Enabled() bool {
	return p != nil && p.enabled && p.delay > 0
}
