package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs one completed search request
func LogRequest(log Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		log.DebugWithFields("search request completed", fields)
	case statusCode == 429:
		log.WarnWithFields("search request throttled", fields)
	default:
		log.ErrorWithFields("search request failed", fields)
	}
}

// LogThrottle logs a cooldown triggered by a throttling signal
func LogThrottle(log Logger, window string, cooldown time.Duration) {
	log.WithFields(map[string]interface{}{
		"window":   window,
		"cooldown": cooldown,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, cooling down before retry")
}

// LogIntervalProgress logs one finished interval
func LogIntervalProgress(log Logger, series string, index, total, items int) {
	log.InfoWithFields("Interval collected", map[string]interface{}{
		"series":   series,
		"interval": index + 1,
		"of":       total,
		"items":    items,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, config map[string]interface{}) {
	l := log.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(string) {}
func (nopLogger) Fatal(string) {}
func (n nopLogger) WithField(string, interface{}) Logger { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger { return n }
func (n nopLogger) WithError(error) Logger { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{}) {}
func (nopLogger) WarnWithFields(string, map[string]interface{}) {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (nopLogger) FatalWithFields(string, map[string]interface{}) {}

func (nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
