// Package logger provides the structured logging interface used across pixivdl.
//
// It wraps zerolog with a small interface so components can accept a Logger in
// their constructors and tests can substitute NewTestLogger or NewNopLogger.
//
//	log, err := logger.New(&cfg.Logging)
//	log = log.WithField("run_id", runID)
//	log.InfoWithFields("download finished", map[string]interface{}{
//	    "items":  12,
//	    "failed": 0,
//	})
//
// Console output is written to stderr. When logging.file is set the same
// events are appended to that file as JSON.
package logger
