package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "lifecycle/statemachine"

// startTransitionSpan creates the root span of one transition attempt.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startTransitionSpan(
	ctx context.Context,
	tracerName, machine, attemptID, from, to string,
) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.transition")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("attempt_id", attemptID),
		attribute.String("from_state", from),
		attribute.String("to_state", to),
	)

	return ctx, span
}

// startHookSpan creates a child span around a single hook call.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startHookSpan(ctx context.Context, tracerName string, kind HookKind, contributor string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.hook."+string(kind))
	span.SetAttributes(
		attribute.String("hook_kind", string(kind)),
		attribute.String("contributor", contributor),
	)

	return ctx, span
}

func endSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "completed")
}

func endSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// extractTraceContext returns the trace and span ids of the active span, if any.
func extractTraceContext(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()

		return spanCtx.TraceID().String(), spanCtx.SpanID().String()
	}

	return "", ""
}
