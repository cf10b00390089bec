package collector

import (
	"context"
	"fmt"
	"time"

	"twitsent/pkg/logger"
	"twitsent/pkg/models"
	"twitsent/pkg/quota"
	"twitsent/pkg/ratelimit"
)

const (
	// historicalOffset keeps every window strictly in the past.
	historicalOffset = 30 * time.Second
	probeWidth       = time.Minute
)

// WarningKind classifies non-fatal warnings
type WarningKind string

const (
	WarningPartialInterval WarningKind = "partial_interval"
	WarningCapacity        WarningKind = "capacity"
)

// Warning is a non-fatal condition found while collecting
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// Options tune a Collector
type Options struct {
	// DensityProbe samples the newest minute before collecting to warn when
	// intervals are too short to reach the cap.
	DensityProbe bool
}

// Result is the outcome of a run. On a fatal error it holds the intervals
// completed before the failure.
type Result struct {
	Intervals []models.Interval `json:"intervals"`
	Warnings  []Warning         `json:"warnings,omitempty"`
	Plan      quota.Plan        `json:"plan"`
}

// Texts returns the items of every interval, newest interval first.
func (r *Result) Texts() [][]string {
	out := make([][]string, len(r.Intervals))
	for i, iv := range r.Intervals {
		out[i] = iv.Items
	}
	return out
}

// Collector walks a collection spec backward in fixed-length intervals
type Collector struct {
	exec      Executor
	paginator *Paginator
	opts      Options
	observer  Observer
	logger    logger.Logger
}

// New creates a collector issuing requests through exec
func New(exec Executor, opts Options, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Collector{
		exec:      exec,
		paginator: NewPaginator(exec, log),
		opts:      opts,
		observer:  NopObserver{},
		logger:    log.WithField("component", "collector"),
	}
}

// SetObserver sets the observer notified of interval progress and warnings
func (c *Collector) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	c.observer = o
}

// Run collects every interval of spec, newest first.
func (c *Collector) Run(ctx context.Context, spec models.CollectionSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	result := &Result{Plan: quota.Estimate(spec)}
	total := spec.IntervalCount()

	c.logger.InfoWithFields("Starting collection", map[string]interface{}{
		"intervals":     total,
		"requests":      result.Plan.RequestCount,
		"will_throttle": result.Plan.WillThrottle,
		"start":         spec.Start,
		"end":           spec.End,
	})

	if spec.Partial() {
		c.warn(result, WarningPartialInterval, fmt.Sprintf(
			"total range of %d minutes is not divisible by the %d minute interval; the oldest interval is shorter and will likely be incomplete",
			spec.TotalMinutes(), spec.IntervalMinutes()))
	}

	if c.opts.DensityProbe {
		if err := c.probeDensity(ctx, spec, result); err != nil {
			return result, err
		}
	}

	runningEnd := spec.End.Add(-historicalOffset)
	lowerBound := spec.Start.Add(-historicalOffset)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		start := runningEnd.Add(-spec.IntervalLength)
		if start.Before(lowerBound) {
			start = lowerBound
		}
		window := models.TimeWindow{Start: start, End: runningEnd}

		c.observer.IntervalStarted(i, total, window)
		items, err := c.collectInterval(ctx, spec, window)
		if err != nil {
			c.logger.WithError(err).WithField("interval", i).Error("Interval aborted")
			return result, err
		}

		interval := models.Interval{
			Index:   i,
			Window:  window,
			Items:   items,
			Partial: window.Width() < spec.IntervalLength,
		}
		result.Intervals = append(result.Intervals, interval)
		logger.LogIntervalProgress(c.logger, spec.Rule, i, total, len(items))
		c.observer.IntervalCompleted(interval, total)

		// Step back by the undivided length so sub-window rounding never drifts the grid.
		runningEnd = runningEnd.Add(-spec.IntervalLength)
	}

	return result, nil
}

// collectInterval splits window into ceil(cap/100) sub-windows walking backward.
// The oldest sub-window absorbs the division remainder and all share the cap.
func (c *Collector) collectInterval(ctx context.Context, spec models.CollectionSpec, window models.TimeWindow) ([]string, error) {
	capacity := spec.MaxItemsPerInterval
	subRequests := (capacity + ratelimit.PerRequestCap - 1) / ratelimit.PerRequestCap
	step := window.Width() / time.Duration(subRequests)

	items := make([]string, 0, min(capacity, ratelimit.PerRequestCap))
	subEnd := window.End
	for j := 0; j < subRequests && len(items) < capacity; j++ {
		subStart := subEnd.Add(-step)
		if j == subRequests-1 {
			subStart = window.Start
		}

		got, err := c.paginator.Collect(ctx, spec.Rule, spec.Languages,
			models.TimeWindow{Start: subStart, End: subEnd}, capacity-len(items))
		items = append(items, got...)
		if err != nil {
			return items, err
		}
		subEnd = subStart
	}
	return items, nil
}

// probeDensity counts first-page items in the newest minute and warns when the
// interval looks too short to reach the cap at that density.
func (c *Collector) probeDensity(ctx context.Context, spec models.CollectionSpec, result *Result) error {
	end := spec.End.Add(-historicalOffset)
	page, err := c.exec.Execute(ctx, models.SearchRequest{
		Rule:       spec.Rule,
		Languages:  spec.Languages,
		Window:     models.TimeWindow{Start: end.Add(-probeWidth), End: end},
		MaxResults: min(spec.MaxItemsPerInterval, ratelimit.PerRequestCap),
	})
	if err != nil {
		c.logger.WithError(err).Error("Density probe failed")
		return err
	}

	count := len(page.Items)
	if count == 0 {
		count = 1
	}
	needed := float64(spec.MaxItemsPerInterval) / float64(count) * 2
	c.logger.DebugWithFields("Density probe finished", map[string]interface{}{
		"items_last_minute": len(page.Items),
		"minutes_needed":    needed,
	})

	if needed > float64(spec.IntervalMinutes()) {
		c.warn(result, WarningCapacity, fmt.Sprintf(
			"about %.0f minutes are needed per interval to reach %d items but intervals are %d minutes; collection will likely be incomplete",
			needed, spec.MaxItemsPerInterval, spec.IntervalMinutes()))
	}
	return nil
}

func (c *Collector) warn(result *Result, kind WarningKind, msg string) {
	w := Warning{Kind: kind, Message: msg}
	result.Warnings = append(result.Warnings, w)
	c.logger.WithField("warning", string(kind)).Warn(msg)
	c.observer.Warned(w)
}
