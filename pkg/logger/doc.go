// Package logger provides the structured logging interface used across twitsent.
//
// It wraps zerolog with a small interface so components can take a Logger
// and tests can swap in NewTestLogger or NewNopLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("Interval collected", map[string]interface{}{
//	    "interval": 3,
//	    "items":    100,
//	})
package logger
