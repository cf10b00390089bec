package ui

import (
	"time"

	"twitsent/pkg/collector"
)

// Dashboard is a full-screen view of a running collection
type Dashboard interface {
	Start() error
	Stop()
	Observer(series string) collector.Observer
	UpdateRateLimit(used, ceiling int, resetAt time.Time)
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
	SeriesStarted(series string, total int)
	Done(summary string)
}
