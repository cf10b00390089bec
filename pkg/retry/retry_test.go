package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottlePolicyTransitions(t *testing.T) {
	p := NewThrottlePolicy(15 * time.Minute)
	assert.Equal(t, StateFresh, p.State())

	wait, ok := p.OnThrottled()
	assert.True(t, ok)
	assert.Equal(t, 15*time.Minute, wait)
	assert.Equal(t, StateThrottled, p.State())

	wait, ok = p.OnThrottled()
	assert.False(t, ok)
	assert.Zero(t, wait)
	assert.Equal(t, StateFatal, p.State())
}

func TestThrottlePolicyResetsOnSuccess(t *testing.T) {
	p := NewThrottlePolicy(time.Minute)

	_, ok := p.OnThrottled()
	assert.True(t, ok)
	p.OnSuccess()
	assert.Equal(t, StateFresh, p.State())

	// A throttle after a success earns a new cooldown.
	wait, ok := p.OnThrottled()
	assert.True(t, ok)
	assert.Equal(t, time.Minute, wait)
}

func TestThrottlePolicyDefaultCooldown(t *testing.T) {
	assert.Equal(t, DefaultCooldown, NewThrottlePolicy(0).Cooldown())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fresh", StateFresh.String())
	assert.Equal(t, "throttled", StateThrottled.String())
	assert.Equal(t, "fatal", StateFatal.String())
}

func TestWait(t *testing.T) {
	t.Run("zero delay returns immediately", func(t *testing.T) {
		assert.NoError(t, Wait(context.Background(), 0))
	})

	t.Run("short delay completes", func(t *testing.T) {
		start := time.Now()
		assert.NoError(t, Wait(context.Background(), 10*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Wait(ctx, time.Hour)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRecordingSleeper(t *testing.T) {
	s := NewRecordingSleeper()
	ctx := context.Background()

	assert.NoError(t, s.Sleep(ctx, time.Second))
	assert.NoError(t, s.Sleep(ctx, 15*time.Minute))
	assert.NoError(t, s.Sleep(ctx, time.Second))

	assert.Equal(t, []time.Duration{time.Second, 15 * time.Minute, time.Second}, s.Calls())
	assert.Equal(t, 2, s.Count(time.Second))
	assert.Equal(t, 15*time.Minute+2*time.Second, s.Total())
}
