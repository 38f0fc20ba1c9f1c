package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrInvalidTransition indicates that the graph has no edge for the requested transition.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrTransitionRejected indicates that a guard declined the transition.
	ErrTransitionRejected = errors.New("transition blocked")
	// ErrHookFailed indicates that a hook returned an error instead of a verdict.
	ErrHookFailed = errors.New("hook failed")
	// ErrHookPanicked indicates that a hook panicked.
	ErrHookPanicked = errors.New("hook panicked")

	// ErrAmbiguousState indicates that two states differ only by letter case.
	ErrAmbiguousState = errors.New("ambiguous state name")
	// ErrDuplicateContributor indicates that two configurations share a name.
	ErrDuplicateContributor = errors.New("duplicate contributor name")
	// ErrInvalidConfig indicates that a machine definition could not be parsed.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrEmptyStateName indicates that a definition contains an empty state name.
	ErrEmptyStateName = errors.New("state name is required")
)

// HookKind identifies the three hook families.
type HookKind string

const (
	HookStart HookKind = "start"
	HookEnd   HookKind = "end"
	HookError HookKind = "error"
)

// TransitionError describes a failed transition attempt. Err is either
// ErrInvalidTransition or ErrTransitionRejected.
type TransitionError struct {
	From   string
	To     string
	Reason string
	Err    error
}

func (e *TransitionError) Error() string {
	if errors.Is(e.Err, ErrInvalidTransition) {
		return e.Reason
	}

	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// HookError wraps an error raised by a hook with the contributor it came from.
type HookError struct {
	Kind        HookKind
	Contributor string
	From        string
	To          string
	Err         error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %q (%s -> %s): %v", e.Kind, e.Contributor, e.From, e.To, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// ValidationError is returned by the Factory when a configuration is rejected.
type ValidationError struct {
	Rule        string
	Contributor string
	Err         error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config %q: %s: %v", e.Contributor, e.Rule, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsInvalidTransition reports whether err describes a missing graph edge.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsRejected reports whether err describes a guard rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrTransitionRejected)
}
