package cli

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

var errEmptyInput = errors.New("you must enter something")

// Confirm asks a yes/no question. Answering no is not an error.
func (t *Terminal) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// PromptState asks for a state name, offering only names accepted by known.
func (t *Terminal) PromptState(label string, known func(string) bool) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: stateValidator(known),
		Stdin:    t.Stdin,
		Stdout:   t.Stdout,
	}

	value, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

// ErrUnknownState is reported by the state prompt for names outside the graph.
var ErrUnknownState = errors.New("unknown state")

func stateValidator(known func(string) bool) promptui.ValidateFunc {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return errEmptyInput
		}

		if known != nil && !known(s) {
			return ErrUnknownState
		}

		return nil
	}
}
