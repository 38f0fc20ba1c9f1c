package testing

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/amp-labs/lifecycle/statemachine"
	"github.com/stretchr/testify/assert"
)

// Call is one recorded hook invocation.
type Call[S comparable, D any] struct {
	Kind   statemachine.HookKind
	Label  string
	From   S
	To     S
	Data   D
	Reason string
}

// Recorder builds hooks that remember every invocation, in order. It is safe to
// share between goroutines.
type Recorder[S comparable, D any] struct {
	mu    sync.Mutex
	calls []Call[S, D]
}

// NewRecorder returns an empty recorder.
func NewRecorder[S comparable, D any]() *Recorder[S, D] {
	return &Recorder[S, D]{}
}

func (r *Recorder[S, D]) record(call Call[S, D]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
}

// Guard returns a start hook that records the call and answers with verdict.
func (r *Recorder[S, D]) Guard(label string, verdict statemachine.Verdict) statemachine.StartHook[S, D] {
	return r.GuardFunc(label, func(context.Context, S, S, D) (statemachine.Verdict, error) {
		return verdict, nil
	})
}

// GuardFunc records the call, then delegates to fn.
func (r *Recorder[S, D]) GuardFunc(label string, fn statemachine.StartHook[S, D]) statemachine.StartHook[S, D] {
	return func(ctx context.Context, from, to S, data D) (statemachine.Verdict, error) {
		r.record(Call[S, D]{Kind: statemachine.HookStart, Label: label, From: from, To: to, Data: data})

		return fn(ctx, from, to, data)
	}
}

// Effect returns an end hook that records the call and returns err.
func (r *Recorder[S, D]) Effect(label string, err error) statemachine.EndHook[S, D] {
	return func(_ context.Context, from, to S, data D) error {
		r.record(Call[S, D]{Kind: statemachine.HookEnd, Label: label, From: from, To: to, Data: data})

		return err
	}
}

// OnError returns an error hook that records the call and returns err.
func (r *Recorder[S, D]) OnError(label string, err error) statemachine.ErrorHook[S] {
	return func(_ context.Context, from, to S, reason string) error {
		r.record(Call[S, D]{Kind: statemachine.HookError, Label: label, From: from, To: to, Reason: reason})

		return err
	}
}

// Calls returns a copy of every recorded call.
func (r *Recorder[S, D]) Calls() []Call[S, D] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.calls)
}

// CallsTo returns the calls made to the hook with the given label.
func (r *Recorder[S, D]) CallsTo(label string) []Call[S, D] {
	var out []Call[S, D]

	for _, c := range r.Calls() {
		if c.Label == label {
			out = append(out, c)
		}
	}

	return out
}

// Count returns how many times the labelled hook ran.
func (r *Recorder[S, D]) Count(label string) int {
	return len(r.CallsTo(label))
}

// CountKind returns how many hooks of the given kind ran.
func (r *Recorder[S, D]) CountKind(kind statemachine.HookKind) int {
	n := 0

	for _, c := range r.Calls() {
		if c.Kind == kind {
			n++
		}
	}

	return n
}

// Labels returns the labels of every call in invocation order.
func (r *Recorder[S, D]) Labels() []string {
	calls := r.Calls()
	out := make([]string, 0, len(calls))

	for _, c := range calls {
		out = append(out, c.Label)
	}

	return out
}

// Reset forgets every recorded call.
func (r *Recorder[S, D]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = nil
}

// AssertCalls checks that exactly the labelled hooks ran, in this order.
func (r *Recorder[S, D]) AssertCalls(t *testing.T, labels ...string) bool {
	t.Helper()

	if len(labels) == 0 {
		return assert.Empty(t, r.Labels(), "no hook should have run")
	}

	return assert.Equal(t, labels, r.Labels(), "hook invocation order")
}

// AssertNotCalled checks that the labelled hook never ran.
func (r *Recorder[S, D]) AssertNotCalled(t *testing.T, label string) bool {
	t.Helper()

	return assert.Zero(t, r.Count(label), "hook %q should not have run", label)
}
