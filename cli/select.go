package cli

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrDone is returned by SelectState when the user picks the done entry.
var ErrDone = errors.New("selection finished")

const doneLabel = "[Done]"

// SelectState lets the user pick one of states, or finish. States are shown in
// the order given, behind a leading done entry. Typing filters by prefix, ignoring
// case.
func (t *Terminal) SelectState(label string, states []string) (string, error) {
	if len(states) == 0 {
		return "", ErrDone
	}

	items := stateItems(states)

	sel := &promptui.Select{
		Label:    label,
		Items:    items,
		Size:     t.PageSize,
		Searcher: stateSearcher(items),
		Stdin:    t.Stdin,
		Stdout:   t.Stdout,
	}

	idx, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	if idx == 0 {
		return "", ErrDone
	}

	return value, nil
}

func stateItems(states []string) []string {
	items := make([]string, 0, len(states)+1)
	items = append(items, doneLabel)

	return append(items, states...)
}

func stateSearcher(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if index == 0 || input == "" {
			return false
		}

		return strings.HasPrefix(strings.ToLower(items[index]), strings.ToLower(input))
	}
}
