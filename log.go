// Package tessera is a 2D mesh/material rendering engine built on WebGPU.
//
// The engine turns declarative material descriptions attached to 2D mesh
// objects into correctly ordered GPU draw commands: opaque draws are binned
// and batched, transparent draws are sorted back-to-front. See the engine/
// subpackages for the per-frame pipeline stages.
package tessera

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip record formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger. Accessed atomically so SetLogger can
// be called concurrently with logging from render worker goroutines.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(nopHandler{})
	loggerPtr.Store(l)
}

// SetLogger configures the logger for tessera and all its subpackages.
// By default no output is produced. Pass nil to restore the silent default.
//
// Levels used by the engine:
//   - slog.LevelDebug: per-frame diagnostics (material retries, cache misses)
//   - slog.LevelInfo: lifecycle events (adapter selected, surface configured)
//   - slog.LevelWarn: non-fatal issues (shader reload failures)
//   - slog.LevelError: pipeline specialization failures (entity skipped)
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger. Subpackages call this to share the
// same logger configuration without introducing import cycles.
//
// Returns:
//   - *slog.Logger: the active logger (never nil)
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
