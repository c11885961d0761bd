// Package log adapts the standard library slog to the engine's logging
// conventions: a context-aware handler that stitches correlation fields
// into every record instead of requiring callers to pass them by hand.
package log

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rapo-engine/rapo/internal/requestid"
)

// ContextHandler wraps an slog.Handler and automatically extracts
// request_id, process_id, and control_name from the context of each log
// record before delegating to inner. This replaces the original
// implementation's module-level logger singleton (§9): every component
// is handed an *slog.Logger built on this handler instead of importing a
// package-global logger.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if pid, ok := ProcessIDFromContext(ctx); ok {
		r.AddAttrs(slog.Int64("process_id", pid))
	}
	if name := ControlNameFromContext(ctx); name != "" {
		r.AddAttrs(slog.String("control_name", name))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}

type ctxKeyProcessID struct{}
type ctxKeyControlName struct{}

// WithProcessID attaches a run's process_id to ctx so every log line
// emitted under it is automatically tagged.
func WithProcessID(ctx context.Context, pid int64) context.Context {
	return context.WithValue(ctx, ctxKeyProcessID{}, pid)
}

func ProcessIDFromContext(ctx context.Context) (int64, bool) {
	pid, ok := ctx.Value(ctxKeyProcessID{}).(int64)
	return pid, ok
}

func WithControlName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyControlName{}, name)
}

func ControlNameFromContext(ctx context.Context) string {
	name, _ := ctx.Value(ctxKeyControlName{}).(string)
	return name
}

// New builds the root logger for a binary: tint's colorized handler in
// local env, JSON everywhere else, both wrapped in ContextHandler.
func New(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(NewContextHandler(inner))
}

// Level parses the engine's LOGGING.level string into an slog.Level.
func Level(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
