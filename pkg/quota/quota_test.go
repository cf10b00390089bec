package quota

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/models"
)

func spec(total, interval time.Duration, max int, elevated bool) models.CollectionSpec {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.CollectionSpec{
		Start:               start,
		End:                 start.Add(total),
		IntervalLength:      interval,
		MaxItemsPerInterval: max,
		Elevated:            elevated,
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		spec     models.CollectionSpec
		requests int
		throttle bool
		minutes  int
	}{
		{
			name:     "single day small cap",
			spec:     spec(24*time.Hour, 4*time.Hour, 10, false),
			requests: 6,
			minutes:  1,
		},
		{
			name:     "cap above one page needs sub-requests",
			spec:     spec(24*time.Hour, 4*time.Hour, 250, false),
			requests: 18,
			minutes:  1,
		},
		{
			name:     "partial interval rounds up",
			spec:     spec(241*time.Minute, 240*time.Minute, 10, false),
			requests: 2,
			minutes:  1,
		},
		{
			name:     "standard ceiling crossed",
			spec:     spec(451*time.Minute, time.Minute, 10, false),
			requests: 451,
			throttle: true,
			minutes:  23,
		},
		{
			name:     "standard ceiling exactly met",
			spec:     spec(450*time.Minute, time.Minute, 10, false),
			requests: 450,
			minutes:  8,
		},
		{
			name:     "elevated ceiling is lower",
			spec:     spec(301*time.Minute, time.Minute, 10, true),
			requests: 301,
			throttle: true,
			minutes:  16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Estimate(tt.spec)
			assert.Equal(t, tt.requests, plan.RequestCount)
			assert.Equal(t, tt.throttle, plan.WillThrottle)
			assert.Equal(t, tt.minutes, plan.EstimatedMinutes)
		})
	}
}

func TestEstimateInvalidSpecIsZero(t *testing.T) {
	plan := Estimate(spec(time.Hour, 0, 10, false))
	assert.Zero(t, plan.RequestCount)
	assert.False(t, plan.WillThrottle)
}

func TestPlanString(t *testing.T) {
	assert.Contains(t, Estimate(spec(451*time.Minute, time.Minute, 10, false)).String(), "exceeds 450")
	assert.Equal(t, "6 requests, about 1 minutes", Estimate(spec(24*time.Hour, 4*time.Hour, 10, false)).String())
}

func TestCheckReach(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	t.Run("within seven days", func(t *testing.T) {
		s := models.CollectionSpec{Start: now.Add(-6 * 24 * time.Hour), End: now}
		assert.NoError(t, CheckReach(s, now))
	})

	t.Run("exactly seven days", func(t *testing.T) {
		s := models.CollectionSpec{Start: now.Add(-StandardReach), End: now}
		assert.NoError(t, CheckReach(s, now))
	})

	t.Run("beyond reach on standard tier", func(t *testing.T) {
		s := models.CollectionSpec{Start: now.Add(-StandardReach - time.Minute), End: now}
		err := CheckReach(s, now)
		require.Error(t, err)
		assert.True(t, errs.IsType(err, errs.ErrorTypeValidation))
		assert.Contains(t, err.Error(), "elevated")
	})

	t.Run("elevated tier has full archive", func(t *testing.T) {
		s := models.CollectionSpec{Start: now.Add(-365 * 24 * time.Hour), End: now, Elevated: true}
		assert.NoError(t, CheckReach(s, now))
	})
}
