// Package testing provides test helpers for engines built with statemachine:
// hook recorders and an engine wrapper with require-style assertions.
package testing

import (
	"context"
	"testing"

	"github.com/amp-labs/lifecycle/statemachine"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// TestEngine wraps an Engine built for a test. Its logs go to t.Log and it does
// not touch the global Prometheus registry.
type TestEngine[S comparable, D any] struct {
	*statemachine.Engine[S, D]

	t *testing.T
}

// NewTestEngine builds an engine from defaults and customs, failing the test if
// the configuration is rejected. Extra options are applied after the test defaults.
func NewTestEngine[S comparable, D any](
	t *testing.T,
	defaults statemachine.Config[S, D],
	customs []statemachine.Config[S, D],
	opts ...statemachine.Option,
) *TestEngine[S, D] {
	t.Helper()

	base := []statemachine.Option{
		statemachine.WithLogger(statemachine.NewSlogLogger(slogt.New(t))),
		statemachine.WithMetricsDisabled(),
	}

	engine, err := statemachine.NewEngine(defaults, customs, append(base, opts...)...)
	require.NoError(t, err, "failed to create engine")

	return &TestEngine[S, D]{Engine: engine, t: t}
}

func (te *TestEngine[S, D]) transition(ctx context.Context, from, to S, data D) statemachine.Result {
	te.t.Helper()

	if ctx == nil {
		ctx = te.t.Context()
	}

	result, err := te.Transition(ctx, from, to, data)
	require.NoError(te.t, err, "transition %v -> %v returned a hook error", from, to)

	return result
}

// RequireSuccess fails the test unless the transition is allowed.
func (te *TestEngine[S, D]) RequireSuccess(ctx context.Context, from, to S, data D) {
	te.t.Helper()

	result := te.transition(ctx, from, to, data)
	require.True(te.t, result.OK(), "transition %v -> %v should succeed, got %s: %s",
		from, to, result.Outcome, result.Reason)
}

// RequireRejected fails the test unless a guard rejects with reason.
func (te *TestEngine[S, D]) RequireRejected(ctx context.Context, from, to S, data D, reason string) {
	te.t.Helper()

	result := te.transition(ctx, from, to, data)
	require.Equal(te.t, statemachine.OutcomeRejected, result.Outcome, "transition %v -> %v", from, to)
	require.Equal(te.t, reason, result.Reason)
	require.ErrorIs(te.t, result.Err(), statemachine.ErrTransitionRejected)
}

// RequireInvalid fails the test unless the graph has no edge from -> to.
func (te *TestEngine[S, D]) RequireInvalid(ctx context.Context, from, to S, data D) {
	te.t.Helper()

	result := te.transition(ctx, from, to, data)
	require.Equal(te.t, statemachine.OutcomeInvalidTransition, result.Outcome, "transition %v -> %v", from, to)
	require.ErrorIs(te.t, result.Err(), statemachine.ErrInvalidTransition)
}

// RequireNextStates fails the test unless NextStates(from) equals want, in order.
func (te *TestEngine[S, D]) RequireNextStates(from S, want ...S) {
	te.t.Helper()

	require.Equal(te.t, want, te.NextStates(from), "next states of %v", from)
}
