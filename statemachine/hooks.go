package statemachine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/multierr"
)

// EndHookPolicy decides what happens to the remaining end hooks when one fails.
// End hook failures never fail the transition under either policy.
type EndHookPolicy int

const (
	// ContinueOnError runs every end hook and reports all failures together.
	ContinueOnError EndHookPolicy = iota
	// AbortOnError skips the end hooks registered after the first failing one.
	AbortOnError
)

func (p EndHookPolicy) String() string {
	if p == AbortOnError {
		return "abort"
	}

	return "continue"
}

type hookEntry[H any] struct {
	contributor string
	fn          H
}

// Registry composes the hooks of every contributor, in registration order.
type Registry[S comparable, D any] struct {
	start  []hookEntry[StartHook[S, D]]
	end    []hookEntry[EndHook[S, D]]
	errs   []hookEntry[ErrorHook[S]]
	policy EndHookPolicy
	instr  *instrumentation
}

// NewRegistry returns an empty registry using the given end hook policy.
func NewRegistry[S comparable, D any](policy EndHookPolicy) *Registry[S, D] {
	return &Registry[S, D]{
		policy: policy,
		instr:  noInstrumentation(),
	}
}

// Add appends the non-nil hooks of one contributor.
func (r *Registry[S, D]) Add(contributor string, start StartHook[S, D], end EndHook[S, D], onError ErrorHook[S]) {
	if start != nil {
		r.start = append(r.start, hookEntry[StartHook[S, D]]{contributor: contributor, fn: start})
	}

	if end != nil {
		r.end = append(r.end, hookEntry[EndHook[S, D]]{contributor: contributor, fn: end})
	}

	if onError != nil {
		r.errs = append(r.errs, hookEntry[ErrorHook[S]]{contributor: contributor, fn: onError})
	}
}

// Count returns how many hooks of the given kind are registered.
func (r *Registry[S, D]) Count(kind HookKind) int {
	switch kind {
	case HookStart:
		return len(r.start)
	case HookEnd:
		return len(r.end)
	case HookError:
		return len(r.errs)
	default:
		return 0
	}
}

// Policy returns the end hook policy.
func (r *Registry[S, D]) Policy() EndHookPolicy {
	return r.policy
}

// RunStart evaluates the guards one after another and stops at the first rejection.
// It returns the rejecting verdict and contributor, or an allowing verdict. A guard
// that errors or panics stops evaluation and its failure is returned as a *HookError.
func (r *Registry[S, D]) RunStart(ctx context.Context, from, to S, data D) (Verdict, string, error) {
	for _, hook := range r.start {
		var verdict Verdict

		err := r.invoke(ctx, HookStart, hook.contributor, from, to, func(ctx context.Context) error {
			var err error

			verdict, err = hook.fn(ctx, from, to, data)

			return err
		})
		if err != nil {
			return Verdict{}, hook.contributor, err
		}

		if verdict.Rejected() {
			return verdict, hook.contributor, nil
		}
	}

	return Allow(), "", nil
}

// RunEnd runs the effects in order. Under ContinueOnError every hook runs and the
// returned error combines all failures; under AbortOnError the first failure stops
// the pass.
func (r *Registry[S, D]) RunEnd(ctx context.Context, from, to S, data D) error {
	var errs error

	for _, hook := range r.end {
		err := r.invoke(ctx, HookEnd, hook.contributor, from, to, func(ctx context.Context) error {
			return hook.fn(ctx, from, to, data)
		})
		if err == nil {
			continue
		}

		errs = multierr.Append(errs, err)

		if r.policy == AbortOnError {
			break
		}
	}

	return errs
}

// RunError notifies every error hook. All hooks run even if some fail.
func (r *Registry[S, D]) RunError(ctx context.Context, from, to S, reason string) error {
	var errs error

	for _, hook := range r.errs {
		err := r.invoke(ctx, HookError, hook.contributor, from, to, func(ctx context.Context) error {
			return hook.fn(ctx, from, to, reason)
		})

		errs = multierr.Append(errs, err)
	}

	return errs
}

// invoke calls one hook inside its own span, recovering panics and recording
// latency and failures.
func (r *Registry[S, D]) invoke(
	ctx context.Context,
	kind HookKind,
	contributor string,
	from, to S,
	call func(ctx context.Context) error,
) error {
	hookCtx, span := startHookSpan(ctx, r.instr.tracerName, kind, contributor)
	defer span.End()

	start := time.Now()
	err := callRecovering(hookCtx, call)
	r.instr.observeHook(kind, contributor, time.Since(start), err)

	if err == nil {
		endSpanOK(span)

		return nil
	}

	hookErr := &HookError{
		Kind:        kind,
		Contributor: contributor,
		From:        stateName(from),
		To:          stateName(to),
		Err:         err,
	}

	endSpanError(span, hookErr)

	return hookErr
}

// callRecovering turns a panic inside call into an error carrying the stack.
func callRecovering(ctx context.Context, call func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrHookPanicked, r, debug.Stack())
		}
	}()

	err = call(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHookFailed, err)
	}

	return nil
}
