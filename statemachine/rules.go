package statemachine

import (
	"fmt"

	"golang.org/x/text/cases"
)

// Rule names, used in ValidationError and warnings.
const (
	RuleDuplicateContributor = "duplicate-contributor"
	RuleCaseCollision        = "case-collision"
	RuleEmptyContributor     = "empty-contributor"
	RuleUnreachableState     = "unreachable-state"
)

// Warning is a non-fatal configuration finding.
type Warning struct {
	Rule        string
	Contributor string
	Message     string
}

// ValidationResult collects the findings of every rule.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []Warning
}

// Valid reports whether no rule produced an error.
func (r ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) fail(rule, contributor string, err error) {
	r.Errors = append(r.Errors, &ValidationError{Rule: rule, Contributor: contributor, Err: err})
}

func (r *ValidationResult) warn(rule, contributor, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Rule:        rule,
		Contributor: contributor,
		Message:     fmt.Sprintf(format, args...),
	})
}

// validateConfigs checks the default config (index 0) and the customs together.
// Names must already be assigned. The merged graph is only used by rules that
// look at the combined result.
func validateConfigs[S comparable, D any](
	configs []Config[S, D],
	merged *Graph[S],
	lenientNames bool,
) ValidationResult {
	var result ValidationResult

	checkDuplicateContributors(configs, &result)
	checkCaseCollisions(configs, lenientNames, &result)
	checkEmptyContributors(configs, &result)
	checkUnreachableStates(configs, merged, &result)

	return result
}

func checkDuplicateContributors[S comparable, D any](configs []Config[S, D], result *ValidationResult) {
	seen := make(map[string]struct{}, len(configs))

	for _, cfg := range configs {
		if _, ok := seen[cfg.Name]; ok {
			result.fail(RuleDuplicateContributor, cfg.Name, ErrDuplicateContributor)

			continue
		}

		seen[cfg.Name] = struct{}{}
	}
}

// checkCaseCollisions rejects state names that only differ by case from a state
// seen earlier, e.g. a plugin targeting "shipped" next to the default "Shipped".
func checkCaseCollisions[S comparable, D any](configs []Config[S, D], lenient bool, result *ValidationResult) {
	caser := cases.Fold()
	canonical := make(map[string]string)

	for _, cfg := range configs {
		for _, state := range cfg.States() {
			name := stateName(state)
			folded := caser.String(name)

			first, ok := canonical[folded]
			if !ok {
				canonical[folded] = name

				continue
			}

			if first == name {
				continue
			}

			if lenient {
				result.warn(RuleCaseCollision, cfg.Name, "state %q differs from %q only by case", name, first)

				continue
			}

			result.fail(RuleCaseCollision, cfg.Name,
				fmt.Errorf("%w: %q differs from %q only by case", ErrAmbiguousState, name, first))
		}
	}
}

func checkEmptyContributors[S comparable, D any](configs []Config[S, D], result *ValidationResult) {
	for i, cfg := range configs {
		if i == 0 || !cfg.IsEmpty() {
			continue
		}

		result.warn(RuleEmptyContributor, cfg.Name, "contributes no transitions and no hooks")
	}
}

// checkUnreachableStates warns about states a custom config introduces that no
// edge leads to. States of the default config without incoming edges are entry
// states and are fine.
func checkUnreachableStates[S comparable, D any](configs []Config[S, D], merged *Graph[S], result *ValidationResult) {
	if len(configs) < 2 {
		return
	}

	targeted := make(map[S]struct{})

	for _, state := range merged.States() {
		for _, next := range merged.NextStates(state) {
			targeted[next] = struct{}{}
		}
	}

	known := make(map[S]struct{})
	for _, state := range configs[0].States() {
		known[state] = struct{}{}
	}

	for _, cfg := range configs[1:] {
		for _, state := range cfg.States() {
			if _, ok := known[state]; ok {
				continue
			}

			known[state] = struct{}{}

			if _, ok := targeted[state]; !ok {
				result.warn(RuleUnreachableState, cfg.Name, "state %q has no incoming transition", stateName(state))
			}
		}
	}
}
