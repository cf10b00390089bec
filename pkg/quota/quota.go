// Package quota estimates how many search requests a collection run needs and
// whether the provider's rate limit will interrupt it.
package quota

import (
	"fmt"
	"time"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/models"
	"twitsent/pkg/ratelimit"
)

// StandardReach is how far back the standard tier can search.
const StandardReach = 7 * 24 * time.Hour

const (
	throttledRequestsPerMinute = 20
	freeRequestsPerMinute      = 60
)

// Plan is advisory. It never gates execution.
type Plan struct {
	RequestCount     int  `json:"request_count"`
	WillThrottle     bool `json:"will_throttle"`
	EstimatedMinutes int  `json:"estimated_minutes"`
	Ceiling          int  `json:"ceiling"`
}

func (p Plan) String() string {
	if p.WillThrottle {
		return fmt.Sprintf("%d requests, exceeds %d per window, about %d minutes with cooldowns",
			p.RequestCount, p.Ceiling, p.EstimatedMinutes)
	}
	return fmt.Sprintf("%d requests, about %d minutes", p.RequestCount, p.EstimatedMinutes)
}

// Estimate computes the request plan for a spec.
func Estimate(spec models.CollectionSpec) Plan {
	subRequests := ceilDiv(spec.MaxItemsPerInterval, ratelimit.PerRequestCap)
	requests := spec.IntervalCount() * subRequests

	ceiling := ratelimit.Ceiling(spec.Elevated)
	plan := Plan{
		RequestCount: requests,
		WillThrottle: requests > ceiling,
		Ceiling:      ceiling,
	}
	if plan.WillThrottle {
		plan.EstimatedMinutes = ceilDiv(requests, throttledRequestsPerMinute)
	} else {
		plan.EstimatedMinutes = ceilDiv(requests, freeRequestsPerMinute)
	}
	return plan
}

// CheckReach rejects standard-tier specs that start further back than the tier can search.
func CheckReach(spec models.CollectionSpec, now time.Time) error {
	if spec.Elevated {
		return nil
	}
	if now.Sub(spec.Start) > StandardReach {
		return errs.Validation("start %s is more than %d minutes before now; the standard tier cannot reach it, use the elevated tier",
			spec.Start.Format(time.RFC3339), int(StandardReach/time.Minute))
	}
	return nil
}

func ceilDiv(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
