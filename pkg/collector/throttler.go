package collector

import (
	"context"
	"time"

	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/models"
	"twitsent/pkg/ratelimit"
	"twitsent/pkg/retry"
)

// ClientConfig holds the throttling behavior for one run.
type ClientConfig struct {
	Elevated bool
	// ExpectThrottle enables pacing after every successful request.
	ExpectThrottle bool
	// Cooldown defaults to retry.DefaultCooldown.
	Cooldown time.Duration
	// Pacing defaults to the tier's pacing from ratelimit.PacingFor.
	Pacing time.Duration
}

// Throttler executes search requests under the provider's rate limit
type Throttler struct {
	transport Transport
	policy    *retry.ThrottlePolicy
	pacer     *ratelimit.Pacer
	sleeper   retry.Sleeper
	window    *ratelimit.Window
	observer  Observer
	logger    logger.Logger
}

// NewThrottler creates a throttler around transport. A nil sleeper sleeps on the wall clock.
func NewThrottler(transport Transport, cfg ClientConfig, sleeper retry.Sleeper, log logger.Logger) *Throttler {
	if sleeper == nil {
		sleeper = retry.ContextSleeper
	}
	if log == nil {
		log = logger.GetLogger()
	}
	pacing := cfg.Pacing
	if pacing <= 0 {
		pacing = ratelimit.PacingFor(cfg.Elevated)
	}

	return &Throttler{
		transport: transport,
		policy:    retry.NewThrottlePolicy(cfg.Cooldown),
		pacer:     ratelimit.NewPacer(pacing, cfg.ExpectThrottle, sleeper),
		sleeper:   sleeper,
		window:    ratelimit.NewWindow(ratelimit.Ceiling(cfg.Elevated), ratelimit.WindowLength, nil),
		observer:  NopObserver{},
		logger:    log.WithField("component", "throttler"),
	}
}

// SetObserver sets the observer notified of requests and cooldowns
func (t *Throttler) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	t.observer = o
}

// Usage reports requests issued in the trailing rate-limit window.
func (t *Throttler) Usage() (used, ceiling int, resetAt time.Time) {
	return t.window.Usage()
}

// State returns the throttle policy state.
func (t *Throttler) State() retry.State {
	return t.policy.State()
}

// Execute issues req. A single throttling signal is absorbed by one cooldown
// sleep and a retry; a second consecutive one returns a rate_limit_exhausted
// error. Any other failure is returned unchanged.
func (t *Throttler) Execute(ctx context.Context, req models.SearchRequest) (*models.Page, error) {
	for {
		start := time.Now()
		page, err := t.transport.Search(ctx, req)
		t.window.Record()
		t.observer.RequestCompleted(time.Since(start), err)

		if err == nil {
			t.policy.OnSuccess()
			if err := t.pacer.Pace(ctx); err != nil {
				return nil, err
			}
			return page, nil
		}

		if !errs.IsRetryable(errs.TypeOf(err)) {
			return nil, err
		}

		cooldown, ok := t.policy.OnThrottled()
		if !ok {
			t.logger.WithError(err).Error("Throttled again after cooldown, giving up")
			return nil, exhausted(err)
		}

		logger.LogThrottle(t.logger, describeWindow(req.Window), cooldown)
		t.observer.Throttled(cooldown)
		if err := t.sleeper.Sleep(ctx, cooldown); err != nil {
			return nil, err
		}
		t.window.Reset()
		t.logger.Info("Cooldown finished, retrying request")
	}
}

func exhausted(cause error) *errs.Error {
	e := &errs.Error{
		Type:    errs.ErrorTypeRateLimitExhausted,
		Message: "rate limit still exceeded after cooldown",
	}
	var typed *errs.Error
	if errs.As(cause, &typed) {
		e.Code = typed.Code
		e.Body = typed.Body
	}
	return e
}

func describeWindow(w models.TimeWindow) string {
	return w.Start.UTC().Format(time.RFC3339) + "/" + w.End.UTC().Format(time.RFC3339)
}
