// Package observability carries run correlation fields through a context so
// every log line of a run can be tied back to it.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/synthdata/internal/logfields"
)

// LogContext holds the correlation fields of the current run.
type LogContext struct {
	RunID   string
	Recipe  string
	Trigger string
	Worker  string
	Stage   string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

func with(ctx context.Context, set func(*LogContext)) context.Context {
	lc := GetContext(ctx)
	set(&lc)
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.RunID = runID })
}

// WithRecipe adds a recipe name to the context.
func WithRecipe(ctx context.Context, name string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Recipe = name })
}

// WithTrigger records what started the run.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Trigger = trigger })
}

// WithWorker adds the queue worker executing the run.
func WithWorker(ctx context.Context, worker string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Worker = worker })
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return with(ctx, func(lc *LogContext) { lc.Stage = stage })
}

// GetContext returns the log context stored in ctx, or the zero value.
func GetContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// Attrs returns the set fields as slog attributes, using the canonical keys.
func Attrs(ctx context.Context) []slog.Attr {
	lc := GetContext(ctx)
	attrs := make([]slog.Attr, 0, 5)
	if lc.RunID != "" {
		attrs = append(attrs, logfields.RunID(lc.RunID))
	}
	if lc.Recipe != "" {
		attrs = append(attrs, logfields.Recipe(lc.Recipe))
	}
	if lc.Trigger != "" {
		attrs = append(attrs, slog.String("trigger", lc.Trigger))
	}
	if lc.Worker != "" {
		attrs = append(attrs, logfields.Worker(lc.Worker))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	return attrs
}

// Logger returns slog.Default with the context's fields attached.
func Logger(ctx context.Context) *slog.Logger {
	attrs := Attrs(ctx)
	if len(attrs) == 0 {
		return slog.Default()
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return slog.Default().With(args...)
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(Attrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(Attrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(Attrs(ctx), attrs...)...)
}
