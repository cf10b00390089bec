// Package metrics exports collection progress as Prometheus metrics.
//
// A Metrics value owns its collectors; Register attaches them to a registry and
// Observer adapts them to the collector's progress hooks. Server exposes the
// registry on /metrics for the duration of a run.
package metrics
