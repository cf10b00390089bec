package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"twitsent/pkg/retry"
)

func TestCeilingAndPacing(t *testing.T) {
	assert.Equal(t, 450, Ceiling(false))
	assert.Equal(t, 300, Ceiling(true))
	assert.Equal(t, 2*time.Second, PacingFor(false))
	assert.Equal(t, 3*time.Second, PacingFor(true))
}

func TestPacer(t *testing.T) {
	ctx := context.Background()

	t.Run("enabled pacer sleeps the delay", func(t *testing.T) {
		sleeper := retry.NewRecordingSleeper()
		p := NewPacer(3*time.Second, true, sleeper)

		assert.NoError(t, p.Pace(ctx))
		assert.NoError(t, p.Pace(ctx))
		assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, sleeper.Calls())
	})

	t.Run("disabled pacer never sleeps", func(t *testing.T) {
		sleeper := retry.NewRecordingSleeper()
		p := NewPacer(3*time.Second, false, sleeper)

		assert.NoError(t, p.Pace(ctx))
		assert.Empty(t, sleeper.Calls())
		assert.False(t, p.Enabled())
	})

	t.Run("zero delay never sleeps", func(t *testing.T) {
		sleeper := retry.NewRecordingSleeper()
		assert.NoError(t, NewPacer(0, true, sleeper).Pace(ctx))
		assert.Empty(t, sleeper.Calls())
	})

	t.Run("nil pacer is a no-op", func(t *testing.T) {
		var p *Pacer
		assert.False(t, p.Enabled())
		assert.NoError(t, p.Pace(ctx))
	})
}

func TestWindowUsage(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	w := NewWindow(StandardCeiling, WindowLength, clock)

	w.Record()
	now = now.Add(5 * time.Minute)
	w.Record()
	w.Record()

	used, ceiling, resetAt := w.Usage()
	assert.Equal(t, 3, used)
	assert.Equal(t, 450, ceiling)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 15, 0, 0, time.UTC), resetAt)

	// The first request leaves the window after 15 minutes.
	now = now.Add(10 * time.Minute)
	used, _, _ = w.Usage()
	assert.Equal(t, 2, used)

	w.Reset()
	used, _, resetAt = w.Usage()
	assert.Zero(t, used)
	assert.True(t, resetAt.IsZero())
}
