package statemachine

import "slices"

// Graph maps each state to the states reachable from it in one step. Outgoing
// edges keep the order in which they were first added.
//
// A Graph is only mutated while a Factory assembles it. Once an Engine owns it,
// it is read-only and safe for concurrent readers.
type Graph[S comparable] struct {
	next   map[S][]S
	member map[S]map[S]struct{}
	order  []S
}

// NewGraph returns an empty graph.
func NewGraph[S comparable]() *Graph[S] {
	return &Graph[S]{
		next:   make(map[S][]S),
		member: make(map[S]map[S]struct{}),
	}
}

// AddEdges unions to into the outgoing set of from. Every state mentioned becomes
// a key of the graph, so terminal states are representable. Adding an edge that
// already exists has no effect.
func (g *Graph[S]) AddEdges(from S, to ...S) {
	g.ensure(from)

	for _, target := range to {
		g.ensure(target)

		if _, ok := g.member[from][target]; ok {
			continue
		}

		g.member[from][target] = struct{}{}
		g.next[from] = append(g.next[from], target)
	}
}

func (g *Graph[S]) ensure(state S) {
	if _, ok := g.member[state]; ok {
		return
	}

	g.member[state] = make(map[S]struct{})
	g.next[state] = nil
	g.order = append(g.order, state)
}

// CanTransition reports whether to is directly reachable from from.
// Unknown states have no outgoing edges.
func (g *Graph[S]) CanTransition(from, to S) bool {
	targets, ok := g.member[from]
	if !ok {
		return false
	}

	_, ok = targets[to]

	return ok
}

// NextStates returns the states reachable from from, in insertion order.
// The returned slice is a copy.
func (g *Graph[S]) NextStates(from S) []S {
	return slices.Clone(g.next[from])
}

// States returns every known state in the order it was first seen.
func (g *Graph[S]) States() []S {
	return slices.Clone(g.order)
}

// HasState reports whether state was ever added, as a source or a target.
func (g *Graph[S]) HasState(state S) bool {
	_, ok := g.member[state]

	return ok
}

// Len returns the number of known states.
func (g *Graph[S]) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of directed edges.
func (g *Graph[S]) EdgeCount() int {
	count := 0

	for _, targets := range g.next {
		count += len(targets)
	}

	return count
}

// Clone returns a deep copy that can be extended independently.
func (g *Graph[S]) Clone() *Graph[S] {
	out := NewGraph[S]()

	for _, state := range g.order {
		out.AddEdges(state, g.next[state]...)
	}

	return out
}

// Equal reports whether both graphs contain the same states and the same edge sets.
// Edge order is ignored.
func (g *Graph[S]) Equal(other *Graph[S]) bool {
	if other == nil || len(g.member) != len(other.member) {
		return false
	}

	for state, targets := range g.member {
		otherTargets, ok := other.member[state]
		if !ok || len(targets) != len(otherTargets) {
			return false
		}

		for target := range targets {
			if _, ok := otherTargets[target]; !ok {
				return false
			}
		}
	}

	return true
}
