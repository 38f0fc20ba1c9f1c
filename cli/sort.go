package cli

import (
	"slices"

	"facette.io/natsort"
)

// NaturalSort returns a copy of names ordered so that embedded numbers compare
// by value: "Retry2" sorts before "Retry10".
func NaturalSort(names []string) []string {
	out := slices.Clone(names)

	natsort.Sort(out)

	return out
}
