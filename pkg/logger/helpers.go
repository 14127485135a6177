package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs the outcome of one upstream HTTP request
func LogRequest(l Logger, method, url string, status int, duration time.Duration) {
	if l == nil {
		l = GetLogger()
	}
	fields := map[string]interface{}{
		"method":   method,
		"url":      url,
		"status":   status,
		"duration": duration,
	}

	switch {
	case status >= 500:
		l.WarnWithFields("upstream server error", fields)
	case status >= 400:
		l.DebugWithFields("upstream client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogTransfer logs the final outcome of one asset transfer
func LogTransfer(l Logger, url, path string, tries int, err error) {
	if l == nil {
		l = GetLogger()
	}
	fields := map[string]interface{}{
		"url":   url,
		"path":  path,
		"tries": tries,
	}

	if err != nil {
		l.WithError(err).ErrorWithFields("transfer failed", fields)
		return
	}
	l.DebugWithFields("transfer completed", fields)
}

// LogDiscoveryProgress logs pagination progress for a source
func LogDiscoveryProgress(l Logger, source string, seen, total int) {
	if l == nil {
		l = GetLogger()
	}
	l.DebugWithFields("discovery progress", map[string]interface{}{
		"source": source,
		"seen":   seen,
		"total":  total,
	})
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
