// Package obslog wires structured JSON logging via log/slog and provides a
// sampled event-logging helper for high-frequency events (partial
// transcripts, pings), grounded on original_source/apps/api/app/core/logging.py's
// log_event helper.
package obslog

import (
	"context"
	"log/slog"
	"math/rand"
	"os"

	"github.com/hashing-labs/meetassist-orchestrator/pkg/orchestrator"
)

// NewJSONLogger returns an slog.Logger writing JSON records to stdout,
// mirroring the Python original's JsonFormatter output shape.
func NewJSONLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// Event logs a structured event at the given sample rate: sampleRate=1.0
// always logs, 0.0 never logs, values in between log probabilistically. A
// rate below 1.0 thins out logging for events that fire often without losing
// the signal entirely. The session and transport code in this module do not
// call it.
func Event(logger *slog.Logger, level slog.Level, event string, sampleRate float64, args ...any) {
	if sampleRate < 1.0 && rand.Float64() > sampleRate {
		return
	}
	logger.Log(context.Background(), level, event, args...)
}

// SlogLogger adapts an *slog.Logger to orchestrator.Logger so the core
// package stays free of any concrete logging dependency while the server
// backs it with structured JSON logging.
type SlogLogger struct {
	inner *slog.Logger
}

func NewSlogLogger(inner *slog.Logger) SlogLogger {
	return SlogLogger{inner: inner}
}

func (l SlogLogger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l SlogLogger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l SlogLogger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l SlogLogger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

var _ orchestrator.Logger = SlogLogger{}
