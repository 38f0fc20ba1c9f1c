package statemachine

import (
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// TransitionConfig lists the states reachable from From. An empty To declares From
// as a known state without outgoing edges.
type TransitionConfig[S comparable] struct {
	From S
	To   []S
}

// Edges is shorthand for a TransitionConfig literal.
func Edges[S comparable](from S, to ...S) TransitionConfig[S] {
	return TransitionConfig[S]{From: from, To: to}
}

// Config is one contributor to a machine: the default definition or a custom
// (plugin) definition. Every field is optional. Transitions are applied in slice
// order, which fixes the order NextStates reports.
type Config[S comparable, D any] struct {
	Name              string
	Transitions       []TransitionConfig[S]
	OnTransitionStart StartHook[S, D]
	OnTransitionEnd   EndHook[S, D]
	OnTransitionError ErrorHook[S]
}

// IsEmpty reports whether the config contributes neither edges nor hooks.
func (c Config[S, D]) IsEmpty() bool {
	return len(c.Transitions) == 0 &&
		c.OnTransitionStart == nil &&
		c.OnTransitionEnd == nil &&
		c.OnTransitionError == nil
}

// States returns every state the config mentions, in first-seen order.
func (c Config[S, D]) States() []S {
	seen := make(map[S]struct{})

	var out []S

	add := func(s S) {
		if _, ok := seen[s]; ok {
			return
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, t := range c.Transitions {
		add(t.From)

		for _, to := range t.To {
			add(to)
		}
	}

	return out
}

// definitionFile is the on-disk shape of a machine definition:
//
//	name: order-process
//	transitions:
//	  Created: [Paid, Cancelled]
//	  Paid: [Shipped]
//	  Shipped: []
//
// transitions is kept as a node so mapping order survives decoding.
type definitionFile struct {
	Name        string    `yaml:"name"`
	Transitions yaml.Node `yaml:"transitions"`
}

// LoadConfig reads a YAML machine definition from path. Hooks are not part of the
// file format; set them on the returned config.
func LoadConfig[D any](path string) (Config[string, D], error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return Config[string, D]{}, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	return LoadConfigFromBytes[D](data)
}

// LoadConfigFromFS loads a definition from a filesystem such as an embed.FS.
func LoadConfigFromFS[D any](fsys fs.FS, path string) (Config[string, D], error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return Config[string, D]{}, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes[D](data)
}

// LoadConfigFromBytes parses a YAML machine definition.
func LoadConfigFromBytes[D any](data []byte) (Config[string, D], error) {
	var file definitionFile

	if err := yaml.Unmarshal(data, &file); err != nil { //nolint:noinlineerr
		return Config[string, D]{}, fmt.Errorf("%w: failed to parse YAML: %w", ErrInvalidConfig, err)
	}

	transitions, err := decodeTransitions(&file.Transitions)
	if err != nil {
		return Config[string, D]{}, err
	}

	return Config[string, D]{
		Name:        file.Name,
		Transitions: transitions,
	}, nil
}

func decodeTransitions(node *yaml.Node) ([]TransitionConfig[string], error) {
	// Absent or null transitions: a hooks-only contributor.
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}

	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: transitions must be a mapping of state to next states",
			ErrInvalidConfig, node.Line)
	}

	out := make([]TransitionConfig[string], 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if key.Value == "" {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidConfig, key.Line, ErrEmptyStateName)
		}

		targets, err := decodeTargets(key.Value, value)
		if err != nil {
			return nil, err
		}

		out = append(out, TransitionConfig[string]{From: key.Value, To: targets})
	}

	return out, nil
}

func decodeTargets(from string, node *yaml.Node) ([]string, error) {
	switch {
	case node.Kind == yaml.ScalarNode && node.Tag == "!!null":
		return nil, nil
	case node.Kind != yaml.SequenceNode:
		return nil, fmt.Errorf("%w: line %d: next states of %q must be a list", ErrInvalidConfig, node.Line, from)
	}

	targets := make([]string, 0, len(node.Content))

	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: next state of %q must be a name", ErrInvalidConfig, item.Line, from)
		}

		if item.Value == "" {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidConfig, item.Line, ErrEmptyStateName)
		}

		targets = append(targets, item.Value)
	}

	return targets, nil
}
