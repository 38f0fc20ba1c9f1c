package statemachine

import (
	"context"
	"fmt"

	"github.com/amp-labs/lifecycle/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Engine decides whether an aggregate may move from one state to another. It holds
// the merged transition graph and the composed hooks of every contributor, and no
// per-aggregate state: the current state always lives with the caller. An Engine is
// immutable after construction and safe for concurrent use.
//
// Concurrent transitions of the same aggregate are not serialized here. Callers
// lock or version the aggregate in their persistence layer around Transition.
//
// Engines must be created with NewEngine or Factory.Build; the zero value is not
// usable.
type Engine[S comparable, D any] struct {
	name         string
	graph        *Graph[S]
	hooks        *Registry[S, D]
	contributors []string
	logger       Logger
	instr        *instrumentation
}

// Name returns the machine name, taken from the default configuration.
func (e *Engine[S, D]) Name() string {
	return e.name
}

// Contributors returns the configuration names in composition order.
func (e *Engine[S, D]) Contributors() []string {
	out := make([]string, len(e.contributors))
	copy(out, e.contributors)

	return out
}

// CanTransition reports whether the graph has an edge from current to target.
// No hooks are invoked.
func (e *Engine[S, D]) CanTransition(current, target S) bool {
	return e.graph.CanTransition(current, target)
}

// NextStates returns the states directly reachable from current, in the order the
// edges were contributed.
func (e *Engine[S, D]) NextStates(current S) []S {
	return e.graph.NextStates(current)
}

// States returns every state known to the merged graph.
func (e *Engine[S, D]) States() []S {
	return e.graph.States()
}

// Graph returns a copy of the merged graph.
func (e *Engine[S, D]) Graph() *Graph[S] {
	return e.graph.Clone()
}

// HookCount returns how many hooks of the given kind were composed.
func (e *Engine[S, D]) HookCount(kind HookKind) int {
	return e.hooks.Count(kind)
}

// Transition attempts to move an aggregate from current to target.
//
// A missing edge or a rejecting guard is reported through the Result, never through
// the error, and the error hooks are notified. When the Result is OK the caller is
// expected to persist target as the aggregate's new state. End hooks have already
// run by the time Transition returns; their failures are logged only.
//
// The error is non-nil only when a guard failed or panicked. In that case the
// Result is zero and must be ignored.
func (e *Engine[S, D]) Transition(ctx context.Context, current, target S, data D) (result Result, err error) {
	from, to := stateName(current), stateName(target)
	attemptID := uuid.NewString()

	ctx = logger.With(logger.WithMachine(ctx, e.name), "attempt_id", attemptID)

	ctx, span := startTransitionSpan(ctx, e.instr.tracerName, e.name, attemptID, from, to)
	defer func() {
		switch {
		case err != nil:
			endSpanError(span, err)
		case !result.OK():
			span.SetAttributes(
				attribute.String("outcome", result.Outcome.String()),
				attribute.String("reason", result.Reason),
			)
			endSpanOK(span)
		default:
			span.SetAttributes(attribute.String("outcome", result.Outcome.String()))
			endSpanOK(span)
		}

		span.End()
	}()

	e.logger.TransitionStarted(ctx, from, to)

	if !e.graph.CanTransition(current, target) {
		reason := fmt.Sprintf("cannot transition from %s to %s", from, to)

		return e.fail(ctx, current, target, OutcomeInvalidTransition, reason), nil
	}

	verdict, contributor, err := e.hooks.RunStart(ctx, current, target, data)
	if err != nil {
		e.instr.observeTransition(from, to, outcomeGuardError)
		e.logger.HookFailed(ctx, HookStart, from, to, err)

		return Result{}, err
	}

	if verdict.Rejected() {
		span.SetAttributes(attribute.String("rejected_by", contributor))

		return e.fail(ctx, current, target, OutcomeRejected, verdict.Reason()), nil
	}

	// From here on the transition is valid; end hook failures cannot undo it.
	if endErr := e.hooks.RunEnd(ctx, current, target, data); endErr != nil {
		e.logger.HookFailed(ctx, HookEnd, from, to, endErr)
	}

	e.instr.observeTransition(from, to, OutcomeSuccess)
	e.logger.TransitionCompleted(ctx, from, to)

	return Result{Outcome: OutcomeSuccess, from: from, to: to}, nil
}

func (e *Engine[S, D]) fail(ctx context.Context, current, target S, outcome Outcome, reason string) Result {
	from, to := stateName(current), stateName(target)

	e.instr.observeTransition(e.stateLabel(current), e.stateLabel(target), outcome)
	e.logger.TransitionFailed(ctx, from, to, outcome, reason)

	if err := e.hooks.RunError(ctx, current, target, reason); err != nil {
		e.logger.HookFailed(ctx, HookError, from, to, err)
	}

	return Result{Outcome: outcome, Reason: reason, from: from, to: to}
}

// stateLabel is the metric label for state. Callers may pass any value, so states
// outside the graph share one label.
func (e *Engine[S, D]) stateLabel(state S) string {
	if !e.graph.HasState(state) {
		return unknownStateLabel
	}

	return stateName(state)
}

// stateName renders a state for messages, logs and metric labels. States that
// implement fmt.Stringer control their own rendering.
func stateName[S comparable](state S) string {
	return fmt.Sprint(state)
}
