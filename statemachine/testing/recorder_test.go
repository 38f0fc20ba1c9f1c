package testing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amp-labs/lifecycle/statemachine"
	smtest "github.com/amp-labs/lifecycle/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticket struct {
	Priority int
}

func TestRecorderCapturesArguments(t *testing.T) {
	t.Parallel()

	rec := smtest.NewRecorder[string, ticket]()
	errNotify := errors.New("pager unreachable")

	guard := rec.Guard("triage", statemachine.RejectWith("needs owner"))
	effect := rec.Effect("notify", errNotify)
	onError := rec.OnError("audit", nil)

	ctx := t.Context()

	verdict, err := guard(ctx, "Open", "InProgress", ticket{Priority: 2})
	require.NoError(t, err)
	assert.Equal(t, "needs owner", verdict.Reason())

	require.ErrorIs(t, effect(ctx, "InProgress", "Closed", ticket{Priority: 1}), errNotify)
	require.NoError(t, onError(ctx, "Open", "Closed", "cannot transition from Open to Closed"))

	calls := rec.Calls()
	require.Len(t, calls, 3)

	assert.Equal(t, smtest.Call[string, ticket]{
		Kind: statemachine.HookStart, Label: "triage", From: "Open", To: "InProgress", Data: ticket{Priority: 2},
	}, calls[0])
	assert.Equal(t, statemachine.HookEnd, calls[1].Kind)
	assert.Equal(t, "cannot transition from Open to Closed", calls[2].Reason)

	assert.Equal(t, 1, rec.CountKind(statemachine.HookError))
	rec.AssertCalls(t, "triage", "notify", "audit")
	rec.AssertNotCalled(t, "escalate")

	rec.Reset()
	rec.AssertCalls(t)
}

func TestRecorderGuardFuncDelegates(t *testing.T) {
	t.Parallel()

	rec := smtest.NewRecorder[string, ticket]()

	guard := rec.GuardFunc("priority", func(_ context.Context, _, _ string, data ticket) (statemachine.Verdict, error) {
		if data.Priority > 3 {
			return statemachine.Reject(), nil
		}

		return statemachine.Allow(), nil
	})

	engine := smtest.NewTestEngine(t, statemachine.Config[string, ticket]{
		Name:              "tickets",
		Transitions:       []statemachine.TransitionConfig[string]{statemachine.Edges("Open", "InProgress")},
		OnTransitionStart: guard,
	}, nil)

	engine.RequireSuccess(t.Context(), "Open", "InProgress", ticket{Priority: 1})
	engine.RequireRejected(t.Context(), "Open", "InProgress", ticket{Priority: 5}, statemachine.DefaultRejectReason)
	engine.RequireInvalid(t.Context(), "InProgress", "Open", ticket{})
	engine.RequireNextStates("Open", "InProgress")

	assert.Equal(t, 2, rec.Count("priority"))
	assert.Len(t, rec.CallsTo("priority"), 2)
}
