package statemachine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransitionMetrics verifies one counter sample per attempt, labelled by outcome.
// Note: Cannot use t.Parallel() because this test modifies global Prometheus metrics.
//
//nolint:paralleltest // Test modifies global Prometheus metric state
func TestTransitionMetrics(t *testing.T) {
	transitionsTotal.Reset()
	hookDuration.Reset()
	hookFailuresTotal.Reset()

	defaults := defaultOrderConfig()
	defaults.Name = "metrics-order"
	defaults.OnTransitionStart = func(_ context.Context, _, to string, _ noData) (Verdict, error) {
		if to == "Cancelled" {
			return RejectWith("already packed"), nil
		}

		return Allow(), nil
	}

	engine, err := NewEngine(defaults, nil, WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	ctx := t.Context()

	for range 2 {
		_, err = engine.Transition(ctx, "Created", "Paid", noData{})
		require.NoError(t, err)
	}

	_, err = engine.Transition(ctx, "Paid", "Cancelled", noData{})
	require.NoError(t, err)

	_, err = engine.Transition(ctx, "Created", "Delivered", noData{})
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-order", "Created", "Paid", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-order", "Paid", "Cancelled", "rejected")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-order", "Created", "Delivered", "invalid_transition")), 0)

	// The invalid attempt never reaches the guard.
	assert.Equal(t, 1, testutil.CollectAndCount(hookDuration))
}

// TestHookFailureMetrics verifies that errors and panics are counted separately.
//
//nolint:paralleltest // Test modifies global Prometheus metric state
func TestHookFailureMetrics(t *testing.T) {
	hookFailuresTotal.Reset()
	transitionsTotal.Reset()

	defaults := defaultOrderConfig()
	defaults.Name = "metrics-hooks"
	defaults.OnTransitionEnd = func(context.Context, string, string, noData) error {
		return errors.New("mailer down")
	}

	engine, err := NewEngine(defaults, []Config[string, noData]{
		{
			Name: "exploding",
			OnTransitionStart: func(_ context.Context, from, _ string, _ noData) (Verdict, error) {
				if from == "Shipped" {
					panic("boom")
				}

				return Allow(), nil
			},
		},
	}, WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	ctx := t.Context()

	_, err = engine.Transition(ctx, "Created", "Paid", noData{})
	require.NoError(t, err)

	_, err = engine.Transition(ctx, "Shipped", "Delivered", noData{})
	require.ErrorIs(t, err, ErrHookPanicked)

	assert.InDelta(t, 1, testutil.ToFloat64(
		hookFailuresTotal.WithLabelValues("metrics-hooks", "end", "metrics-hooks", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		hookFailuresTotal.WithLabelValues("metrics-hooks", "start", "exploding", "panic")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-hooks", "Shipped", "Delivered", "guard_error")), 0)
}

// TestUnknownStatesShareOneSeries verifies that caller-supplied states outside the
// graph do not add label values.
//
//nolint:paralleltest // Test modifies global Prometheus metric state
func TestUnknownStatesShareOneSeries(t *testing.T) {
	transitionsTotal.Reset()

	defaults := defaultOrderConfig()
	defaults.Name = "metrics-unknown"

	engine, err := NewEngine(defaults, nil, WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	for i := range 25 {
		_, err = engine.Transition(t.Context(), fmt.Sprintf("user-%d", i), "Paid", noData{})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(transitionsTotal))
	assert.InDelta(t, 25, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-unknown", "unknown", "Paid", "invalid_transition")), 0)

	_, err = engine.Transition(t.Context(), "Created", "user-1", noData{})
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(
		transitionsTotal.WithLabelValues("metrics-unknown", "Created", "unknown", "invalid_transition")), 0)
}

// TestMetricsDisabled verifies that WithMetricsDisabled records nothing.
//
//nolint:paralleltest // Test modifies global Prometheus metric state
func TestMetricsDisabled(t *testing.T) {
	transitionsTotal.Reset()

	engine, err := NewEngine(defaultOrderConfig(), nil, WithMetricsDisabled(), WithLogger(&recordingLogger{}))
	require.NoError(t, err)

	_, err = engine.Transition(t.Context(), "Created", "Paid", noData{})
	require.NoError(t, err)

	assert.Equal(t, 0, testutil.CollectAndCount(transitionsTotal))
}

func TestSanitizeMachine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", sanitizeMachine(""))
	assert.Equal(t, "order", sanitizeMachine("order"))
}
