package statemachine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// DefaultContributorName names a default config that has no name.
const DefaultContributorName = "default"

// Option configures engine construction.
type Option func(*options)

type options struct {
	logger       Logger
	policy       EndHookPolicy
	lenientNames bool
	metrics      bool
	tracerName   string
}

func defaultOptions() options {
	return options{
		policy:     ContinueOnError,
		metrics:    true,
		tracerName: defaultTracerName,
	}
}

// WithLogger sets the logger for transitions, hook failures and config warnings.
// Defaults to NewDefaultLogger().
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEndHookPolicy chooses what happens to the remaining end hooks after one fails.
// Defaults to ContinueOnError.
func WithEndHookPolicy(policy EndHookPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithLenientStateNames downgrades state names that differ only by case from a
// build error to a logged warning.
func WithLenientStateNames() Option {
	return func(o *options) {
		o.lenientNames = true
	}
}

// WithMetricsDisabled stops the engine from recording Prometheus metrics.
func WithMetricsDisabled() Option {
	return func(o *options) {
		o.metrics = false
	}
}

// WithTracerName overrides the OpenTelemetry tracer name used for spans.
func WithTracerName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.tracerName = name
		}
	}
}

// Factory assembles an Engine from one default config and any number of custom
// configs. Custom configs are composed in the order they are registered. A Factory
// is meant to be used during application startup from a single goroutine.
type Factory[S comparable, D any] struct {
	defaults Config[S, D]
	customs  []Config[S, D]
	opts     []Option
}

// NewFactory starts a factory from the default configuration.
func NewFactory[S comparable, D any](defaults Config[S, D], opts ...Option) *Factory[S, D] {
	return &Factory[S, D]{
		defaults: defaults,
		opts:     opts,
	}
}

// Register appends a custom configuration.
func (f *Factory[S, D]) Register(cfg Config[S, D]) *Factory[S, D] {
	f.customs = append(f.customs, cfg)

	return f
}

// Build validates and merges the configurations and returns the engine.
func (f *Factory[S, D]) Build() (*Engine[S, D], error) {
	return NewEngine(f.defaults, f.customs, f.opts...)
}

// NewEngine merges defaults and customs into an Engine.
//
// The default transitions are applied first, then each custom config's in order;
// configs can only add states and edges. Hooks are composed in the same order.
// Validation runs once, here: errors fail the build, warnings go to the logger.
func NewEngine[S comparable, D any](defaults Config[S, D], customs []Config[S, D], opts ...Option) (*Engine[S, D], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = NewDefaultLogger()
	}

	configs := nameConfigs(defaults, customs)

	graph := NewGraph[S]()
	for _, cfg := range configs {
		for _, t := range cfg.Transitions {
			graph.AddEdges(t.From, t.To...)
		}
	}

	result := validateConfigs(configs, graph, o.lenientNames)

	ctx := context.Background()
	for _, w := range result.Warnings {
		o.logger.ConfigWarning(ctx, w.Contributor, w.Rule, w.Message)
	}

	if !result.Valid() {
		var errs error
		for _, e := range result.Errors {
			errs = multierr.Append(errs, e)
		}

		return nil, fmt.Errorf("state machine %q: %w", configs[0].Name, errs)
	}

	instr := &instrumentation{
		machine:    configs[0].Name,
		tracerName: o.tracerName,
		metrics:    o.metrics,
	}

	hooks := NewRegistry[S, D](o.policy)
	hooks.instr = instr

	contributors := make([]string, 0, len(configs))

	for _, cfg := range configs {
		hooks.Add(cfg.Name, cfg.OnTransitionStart, cfg.OnTransitionEnd, cfg.OnTransitionError)
		contributors = append(contributors, cfg.Name)
	}

	return &Engine[S, D]{
		name:         configs[0].Name,
		graph:        graph,
		hooks:        hooks,
		contributors: contributors,
		logger:       o.logger,
		instr:        instr,
	}, nil
}

// nameConfigs returns the default followed by the customs, filling in missing names.
func nameConfigs[S comparable, D any](defaults Config[S, D], customs []Config[S, D]) []Config[S, D] {
	configs := make([]Config[S, D], 0, len(customs)+1)

	if defaults.Name == "" {
		defaults.Name = DefaultContributorName
	}

	configs = append(configs, defaults)

	for i, cfg := range customs {
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("custom-%d", i+1)
		}

		configs = append(configs, cfg)
	}

	return configs
}
