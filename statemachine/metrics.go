package statemachine

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unknownStateLabel replaces state labels that are not in the merged graph.
const unknownStateLabel = "unknown"

// Metric definitions with appropriate labels. State labels come from the merged
// graph, so their cardinality is bounded by configuration.
var (
	// transitionsTotal counts transition attempts by outcome.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_transitions_total",
		Help: "Total number of transition attempts by machine, from_state, to_state, and outcome",
	}, []string{"machine", "from_state", "to_state", "outcome"})

	// hookDuration tracks how long individual hooks take.
	hookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lifecycle_hook_duration_seconds",
		Help:    "Duration of hook execution by machine, hook kind, and contributor",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"machine", "kind", "contributor"})

	// hookFailuresTotal counts hooks that errored or panicked.
	hookFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifecycle_hook_failures_total",
		Help: "Total number of hook failures by machine, hook kind, contributor, and cause (error or panic)",
	}, []string{"machine", "kind", "contributor", "cause"})
)

// instrumentation carries the per-engine settings shared by the engine and its registry.
type instrumentation struct {
	machine    string
	tracerName string
	metrics    bool
}

func noInstrumentation() *instrumentation {
	return &instrumentation{tracerName: defaultTracerName}
}

func (i *instrumentation) observeHook(kind HookKind, contributor string, elapsed time.Duration, err error) {
	if !i.metrics {
		return
	}

	hookDuration.WithLabelValues(sanitizeMachine(i.machine), string(kind), contributor).Observe(elapsed.Seconds())

	if err == nil {
		return
	}

	cause := "error"
	if errors.Is(err, ErrHookPanicked) {
		cause = "panic"
	}

	hookFailuresTotal.WithLabelValues(sanitizeMachine(i.machine), string(kind), contributor, cause).Inc()
}

func (i *instrumentation) observeTransition(from, to string, outcome Outcome) {
	if !i.metrics {
		return
	}

	transitionsTotal.WithLabelValues(sanitizeMachine(i.machine), from, to, outcome.String()).Inc()
}

func sanitizeMachine(machine string) string {
	if machine == "" {
		return "unknown"
	}

	return machine
}
