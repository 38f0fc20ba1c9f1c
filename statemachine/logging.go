package statemachine

import (
	"context"
	"log/slog"

	"github.com/amp-labs/lifecycle/logger"
)

// Logger receives the engine's logging events. It is also the only channel through
// which end hook and error hook failures are reported.
type Logger interface {
	TransitionStarted(ctx context.Context, from, to string)
	TransitionCompleted(ctx context.Context, from, to string)
	TransitionFailed(ctx context.Context, from, to string, outcome Outcome, reason string)
	HookFailed(ctx context.Context, kind HookKind, from, to string, err error)
	ConfigWarning(ctx context.Context, contributor, rule, message string)
}

// DefaultLogger implements Logger using slog. Without an explicit *slog.Logger it
// resolves one per call through logger.Get, so context attributes are included.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger backed by the logger package.
func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{}
}

// NewSlogLogger creates a logger that writes to l.
func NewSlogLogger(l *slog.Logger) *DefaultLogger {
	return &DefaultLogger{logger: l}
}

func (l *DefaultLogger) get(ctx context.Context) *slog.Logger {
	base := l.logger
	if base == nil {
		return logger.Get(ctx)
	}

	if machine, ok := logger.GetMachine(ctx); ok {
		base = base.With("machine", machine)
	}

	if vals := logger.Values(ctx); len(vals) > 0 {
		base = base.With(vals...)
	}

	return base
}

func traceFields(ctx context.Context) []any {
	traceID, spanID := extractTraceContext(ctx)
	if traceID == "" {
		return nil
	}

	return []any{"trace_id", traceID, "span_id", spanID}
}

func (l *DefaultLogger) TransitionStarted(ctx context.Context, from, to string) {
	l.get(ctx).DebugContext(ctx, "Transition started",
		append([]any{"from", from, "to", to}, traceFields(ctx)...)...)
}

func (l *DefaultLogger) TransitionCompleted(ctx context.Context, from, to string) {
	l.get(ctx).InfoContext(ctx, "Transition completed",
		append([]any{"from", from, "to", to}, traceFields(ctx)...)...)
}

func (l *DefaultLogger) TransitionFailed(ctx context.Context, from, to string, outcome Outcome, reason string) {
	fields := append([]any{
		"from", from,
		"to", to,
		"outcome", outcome.String(),
		"reason", reason,
	}, traceFields(ctx)...)

	// A missing edge usually points at a caller bug; a rejection is a normal business answer.
	if outcome == OutcomeInvalidTransition {
		l.get(ctx).WarnContext(ctx, "Transition not in graph", fields...)
	} else {
		l.get(ctx).InfoContext(ctx, "Transition rejected", fields...)
	}
}

func (l *DefaultLogger) HookFailed(ctx context.Context, kind HookKind, from, to string, err error) {
	l.get(ctx).ErrorContext(ctx, "Hook failed",
		append([]any{
			"hook_kind", string(kind),
			"from", from,
			"to", to,
			"error", err,
		}, traceFields(ctx)...)...)
}

func (l *DefaultLogger) ConfigWarning(ctx context.Context, contributor, rule, message string) {
	l.get(ctx).WarnContext(ctx, "State machine configuration warning",
		"contributor", contributor,
		"rule", rule,
		"message", message,
	)
}
