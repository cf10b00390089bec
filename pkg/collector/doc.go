// Package collector turns a collection spec into a bounded sequence of search
// requests and returns one bounded text collection per interval.
//
// Three pieces cooperate:
//
// The Throttler issues one search request at a time. The first throttling
// signal triggers a single cooldown and a retry; a second consecutive signal
// is fatal. When the plan expects throttling it also paces every successful
// request.
//
// The Paginator lazily follows cursors for one time window, normalizes each
// item and stops at the requested limit.
//
// The Collector walks backward from the end of the range in fixed-length
// intervals, splits each interval into sub-windows when the cap exceeds one
// page, and records non-fatal warnings. If a transport error aborts the run,
// the intervals completed so far are returned with the error.
//
// Usage:
//
//	throttler := collector.NewThrottler(client, collector.ClientConfig{
//	    Elevated:       spec.Elevated,
//	    ExpectThrottle: quota.Estimate(spec).WillThrottle,
//	}, retry.ContextSleeper, log)
//	c := collector.New(throttler, collector.Options{DensityProbe: true}, log)
//	result, err := c.Run(ctx, spec)
package collector
