package statemachine_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/lifecycle/statemachine"
	smtest "github.com/amp-labs/lifecycle/statemachine/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// TestConcurrentTransitions drives one shared engine from many goroutines. Each
// aggregate owns its state; the engine only decides.
func TestConcurrentTransitions(t *testing.T) {
	t.Parallel()

	const orders = 200

	var (
		paid      = atomic.NewInt64(0)
		rejected  = atomic.NewInt64(0)
		effects   = atomic.NewInt64(0)
		errorHook = atomic.NewInt64(0)
	)

	defaults := orderDefaults()
	defaults.OnTransitionStart = func(_ context.Context, _, to string, data orderData) (statemachine.Verdict, error) {
		if to == "Shipped" && data.Stock < data.Qty {
			return statemachine.RejectWith("out of stock"), nil
		}

		return statemachine.Allow(), nil
	}
	defaults.OnTransitionEnd = func(context.Context, string, string, orderData) error {
		effects.Inc()

		return nil
	}
	defaults.OnTransitionError = func(context.Context, string, string, string) error {
		errorHook.Inc()

		return nil
	}

	engine := smtest.NewTestEngine(t, defaults, nil)

	pool := pond.NewPool(16)
	t.Cleanup(pool.StopAndWait)

	group := pool.NewGroup()

	for i := range orders {
		group.Submit(func() {
			ctx := context.Background()
			order := orderData{ID: fmt.Sprintf("order-%d", i), Stock: i % 2, Qty: 1}
			state := "Created"

			for _, next := range []string{"Paid", "Shipped"} {
				result, err := engine.Transition(ctx, state, next, order)
				if err != nil || !result.OK() {
					rejected.Inc()

					return
				}

				if next == "Paid" {
					paid.Inc()
				}

				state = next
			}
		})
	}

	require.NoError(t, group.Wait())

	assert.Equal(t, int64(orders), paid.Load())
	assert.Equal(t, int64(orders/2), rejected.Load())
	assert.Equal(t, int64(orders+orders/2), effects.Load())
	assert.Equal(t, rejected.Load(), errorHook.Load())
}

// TestConcurrentRecorder checks that recorded hooks tolerate parallel callers.
func TestConcurrentRecorder(t *testing.T) {
	t.Parallel()

	rec := smtest.NewRecorder[string, orderData]()

	defaults := orderDefaults()
	defaults.OnTransitionStart = rec.Guard("guard", statemachine.Allow())
	defaults.OnTransitionEnd = rec.Effect("effect", nil)

	engine := smtest.NewTestEngine(t, defaults, nil)

	pool := pond.NewPool(8)
	t.Cleanup(pool.StopAndWait)

	group := pool.NewGroup()

	for range 50 {
		group.Submit(func() {
			_, _ = engine.Transition(context.Background(), "Paid", "Cancelled", orderData{})
		})
	}

	require.NoError(t, group.Wait())

	assert.Equal(t, 50, rec.Count("guard"))
	assert.Equal(t, 50, rec.Count("effect"))
}
