// Package visualizer renders the merged transition graph of a state machine as a
// Mermaid state diagram or a Graphviz DOT digraph.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Visualizer errors.
var (
	ErrViewNil      = errors.New("graph view cannot be nil")
	ErrBadDirection = errors.New("direction must be TD or LR")
	ErrEmptyDiagram = errors.New("graph has no states")
)

// GraphView is the read-only part of a graph needed for rendering. Both
// *statemachine.Engine and *statemachine.Graph satisfy it.
type GraphView[S comparable] interface {
	States() []S
	NextStates(from S) []S
}

// diagram is the string form of a view, shared by both renderers.
type diagram struct {
	states    []string
	edges     map[string][]string
	incoming  map[string]int
	highlight map[string]bool
	ids       map[string]string
}

func snapshot[S comparable](view GraphView[S], opts Options) (*diagram, error) {
	if view == nil {
		return nil, ErrViewNil
	}

	if opts.Direction != "TD" && opts.Direction != "LR" {
		return nil, fmt.Errorf("%w: got %q", ErrBadDirection, opts.Direction)
	}

	states := view.States()
	if len(states) == 0 {
		return nil, ErrEmptyDiagram
	}

	d := &diagram{
		states:    make([]string, 0, len(states)),
		edges:     make(map[string][]string, len(states)),
		incoming:  make(map[string]int, len(states)),
		highlight: make(map[string]bool, len(opts.HighlightPath)),
		ids:       make(map[string]string, len(states)),
	}

	for _, s := range states {
		from := fmt.Sprint(s)
		d.states = append(d.states, from)

		for _, next := range view.NextStates(s) {
			to := fmt.Sprint(next)
			d.edges[from] = append(d.edges[from], to)
			d.incoming[to]++
		}
	}

	for _, s := range opts.HighlightPath {
		d.highlight[s] = true
	}

	d.assignIDs()

	return d, nil
}

// assignIDs gives every state a Mermaid identifier unique within the diagram.
// Names that map onto the same identifier get a numeric suffix in state order.
func (d *diagram) assignIDs() {
	used := make(map[string]bool, len(d.states))

	assign := func(state string) {
		if _, ok := d.ids[state]; ok {
			return
		}

		base := mermaidID(state)
		id := base

		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
		}

		used[id] = true
		d.ids[state] = id
	}

	// Names that are already valid identifiers keep them.
	for _, state := range d.states {
		if mermaidID(state) == state && !used[state] {
			used[state] = true
			d.ids[state] = state
		}
	}

	for _, state := range d.states {
		assign(state)
	}

	// Views may list edge targets they do not report as states.
	for _, state := range d.states {
		for _, next := range d.edges[state] {
			assign(next)
		}
	}
}

func (d *diagram) isTerminal(state string) bool {
	return len(d.edges[state]) == 0
}

func (d *diagram) isEntry(state string) bool {
	return d.incoming[state] == 0
}

// GenerateMermaid renders view as a Mermaid state diagram with default options.
func GenerateMermaid[S comparable](view GraphView[S]) (string, error) {
	return GenerateMermaidWithOptions(view, DefaultOptions())
}

// GenerateMermaidWithOptions renders view as a Mermaid state diagram.
func GenerateMermaidWithOptions[S comparable](view GraphView[S], opts Options) (string, error) {
	d, err := snapshot(view, opts)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	fmt.Fprintf(&sb, "stateDiagram-v2\n    direction %s\n", directionKeyword(opts.Direction))

	// States whose names are not valid identifiers get an alias.
	for _, state := range d.states {
		if id := d.ids[state]; id != state {
			fmt.Fprintf(&sb, "    state %q as %s\n", state, id)
		}
	}

	for _, state := range d.states {
		id := d.ids[state]

		if opts.ShowEntry && d.isEntry(state) {
			fmt.Fprintf(&sb, "    [*] --> %s\n", id)
		}

		for _, next := range d.edges[state] {
			fmt.Fprintf(&sb, "    %s --> %s\n", id, d.ids[next])
		}

		terminal := d.isTerminal(state)
		if opts.MarkTerminal && terminal {
			fmt.Fprintf(&sb, "    %s --> [*]\n", id)
		}

		switch {
		case d.highlight[state]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case opts.MarkTerminal && terminal:
			fmt.Fprintf(&sb, "    class %s terminalState\n", id)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef terminalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

// GenerateDOT renders view as a Graphviz digraph named name.
func GenerateDOT[S comparable](view GraphView[S], name string, opts Options) (string, error) {
	d, err := snapshot(view, opts)
	if err != nil {
		return "", err
	}

	if name == "" {
		name = "statemachine"
	}

	rankdir := "TB"
	if opts.Direction == "LR" {
		rankdir = "LR"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "digraph %q {\n", name)
	fmt.Fprintf(&sb, "    rankdir=%s;\n", rankdir)
	sb.WriteString("    node [shape=box, style=rounded];\n")

	if opts.ShowEntry {
		sb.WriteString("    \"__start\" [shape=point];\n")
	}

	for _, state := range d.states {
		var attrs []string

		if opts.MarkTerminal && d.isTerminal(state) {
			attrs = append(attrs, "peripheries=2")
		}

		if d.highlight[state] {
			attrs = append(attrs, "style=\"rounded,filled\"", "fillcolor=\"#fff9c4\"")
		}

		if len(attrs) == 0 {
			fmt.Fprintf(&sb, "    %q;\n", state)
		} else {
			fmt.Fprintf(&sb, "    %q [%s];\n", state, strings.Join(attrs, ", "))
		}
	}

	for _, state := range d.states {
		if opts.ShowEntry && d.isEntry(state) {
			fmt.Fprintf(&sb, "    \"__start\" -> %q;\n", state)
		}

		for _, next := range d.edges[state] {
			fmt.Fprintf(&sb, "    %q -> %q;\n", state, next)
		}
	}

	sb.WriteString("}\n")

	return sb.String(), nil
}

func directionKeyword(direction string) string {
	if direction == "LR" {
		return "LR"
	}

	return "TB"
}

// mermaidID maps a state name onto the identifier alphabet Mermaid accepts.
func mermaidID(state string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}

		return '_'
	}, state)
}
