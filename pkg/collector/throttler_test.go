package collector

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/models"
	"twitsent/pkg/retry"
)

func throttled() error {
	return errs.FromStatus(http.StatusTooManyRequests, `{"title":"Too Many Requests"}`)
}

func TestThrottlerSuccess(t *testing.T) {
	transport := &fakeTransport{respond: func(int, models.SearchRequest) (*models.Page, error) {
		return pageOf(3, "next"), nil
	}}
	sleeper := retry.NewRecordingSleeper()
	th := NewThrottler(transport, ClientConfig{}, sleeper, logger.NewNopLogger())

	page, err := th.Execute(context.Background(), models.SearchRequest{Rule: "x"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Empty(t, sleeper.Calls())

	used, ceiling, _ := th.Usage()
	assert.Equal(t, 1, used)
	assert.Equal(t, 450, ceiling)
}

func TestThrottlerPacing(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ClientConfig
		expected time.Duration
	}{
		{"standard tier", ClientConfig{ExpectThrottle: true}, 2 * time.Second},
		{"elevated tier", ClientConfig{Elevated: true, ExpectThrottle: true}, 3 * time.Second},
		{"explicit pacing", ClientConfig{ExpectThrottle: true, Pacing: 500 * time.Millisecond}, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{respond: fillPages}
			sleeper := retry.NewRecordingSleeper()
			th := NewThrottler(transport, tt.cfg, sleeper, logger.NewNopLogger())

			for i := 0; i < 3; i++ {
				_, err := th.Execute(context.Background(), models.SearchRequest{MaxResults: 10})
				require.NoError(t, err)
			}
			assert.Equal(t, []time.Duration{tt.expected, tt.expected, tt.expected}, sleeper.Calls())
		})
	}
}

func TestThrottlerSingleCooldownThenRetry(t *testing.T) {
	transport := &fakeTransport{respond: func(n int, req models.SearchRequest) (*models.Page, error) {
		if n == 0 {
			return nil, throttled()
		}
		return pageOf(2, ""), nil
	}}
	sleeper := retry.NewRecordingSleeper()
	obs := &recordingObserver{}
	th := NewThrottler(transport, ClientConfig{Cooldown: 15 * time.Minute}, sleeper, logger.NewNopLogger())
	th.SetObserver(obs)

	page, err := th.Execute(context.Background(), models.SearchRequest{Rule: "x"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)

	assert.Equal(t, []time.Duration{15 * time.Minute}, sleeper.Calls())
	assert.Equal(t, []time.Duration{15 * time.Minute}, obs.cooldowns)
	assert.Equal(t, 2, obs.requests)
	assert.Equal(t, 1, obs.failures)
	assert.Equal(t, retry.StateFresh, th.State())
	assert.Len(t, transport.Requests(), 2)
}

func TestThrottlerTwoConsecutiveThrottlesAreFatal(t *testing.T) {
	transport := &fakeTransport{respond: func(int, models.SearchRequest) (*models.Page, error) {
		return nil, throttled()
	}}
	sleeper := retry.NewRecordingSleeper()
	log := logger.NewTestLogger()
	th := NewThrottler(transport, ClientConfig{}, sleeper, log)

	_, err := th.Execute(context.Background(), models.SearchRequest{Rule: "x"})
	require.Error(t, err)

	var typed *errs.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, errs.ErrorTypeRateLimitExhausted, typed.Type)
	assert.Equal(t, http.StatusTooManyRequests, typed.Code)
	assert.Contains(t, typed.Body, "Too Many Requests")

	assert.Equal(t, []time.Duration{retry.DefaultCooldown}, sleeper.Calls())
	assert.Len(t, transport.Requests(), 2)
	assert.Equal(t, retry.StateFatal, th.State())
	assert.True(t, log.HasMessage("Rate limit reached"))
}

func TestThrottlerThrottleAfterSuccessGetsNewCooldown(t *testing.T) {
	// 429, ok, 429, ok: each throttle follows a success, so neither is fatal.
	transport := &fakeTransport{respond: func(n int, req models.SearchRequest) (*models.Page, error) {
		if n%2 == 0 {
			return nil, throttled()
		}
		return pageOf(1, ""), nil
	}}
	sleeper := retry.NewRecordingSleeper()
	th := NewThrottler(transport, ClientConfig{}, sleeper, logger.NewNopLogger())

	for i := 0; i < 2; i++ {
		_, err := th.Execute(context.Background(), models.SearchRequest{})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, sleeper.Count(retry.DefaultCooldown))
}

func TestThrottlerOtherFailuresAreImmediate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		typ  errs.ErrorType
	}{
		{"api error", errs.FromStatus(http.StatusBadRequest, "bad query"), errs.ErrorTypeAPI},
		{"auth error", errs.FromStatus(http.StatusUnauthorized, ""), errs.ErrorTypeAuth},
		{"network error", &errs.Error{Type: errs.ErrorTypeNetwork, Message: "reset"}, errs.ErrorTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{respond: func(int, models.SearchRequest) (*models.Page, error) {
				return nil, tt.err
			}}
			sleeper := retry.NewRecordingSleeper()
			th := NewThrottler(transport, ClientConfig{ExpectThrottle: true}, sleeper, logger.NewNopLogger())

			_, err := th.Execute(context.Background(), models.SearchRequest{})
			require.Error(t, err)
			assert.True(t, errs.IsType(err, tt.typ))
			assert.Empty(t, sleeper.Calls())
			assert.Len(t, transport.Requests(), 1)
		})
	}
}

func TestThrottlerCancelledDuringCooldown(t *testing.T) {
	transport := &fakeTransport{respond: func(int, models.SearchRequest) (*models.Page, error) {
		return nil, throttled()
	}}
	sleeper := retry.SleeperFunc(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	})
	th := NewThrottler(transport, ClientConfig{}, sleeper, logger.NewNopLogger())

	_, err := th.Execute(context.Background(), models.SearchRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, transport.Requests(), 1)
}
