package statemachine

import "context"

// StartHook is a guard. It runs before a transition commits and may reject it by
// returning a rejecting Verdict. A non-nil error means the guard itself is broken
// and is returned to the caller of Engine.Transition.
type StartHook[S comparable, D any] func(ctx context.Context, from, to S, data D) (Verdict, error)

// EndHook is an effect that runs after every guard has allowed a transition.
type EndHook[S comparable, D any] func(ctx context.Context, from, to S, data D) error

// ErrorHook is notified once per failed transition attempt. It does not receive the
// transition data since nothing was committed.
type ErrorHook[S comparable] func(ctx context.Context, from, to S, reason string) error

// DefaultRejectReason is used when a guard rejects without a message.
const DefaultRejectReason = "transition blocked"

// Verdict is the answer of a StartHook. The zero value allows the transition.
type Verdict struct {
	rejected bool
	message  string
}

// Allow lets the transition continue to the next guard.
func Allow() Verdict {
	return Verdict{}
}

// Reject blocks the transition with DefaultRejectReason.
func Reject() Verdict {
	return Verdict{rejected: true}
}

// RejectWith blocks the transition with a caller visible reason.
func RejectWith(message string) Verdict {
	return Verdict{rejected: true, message: message}
}

// Rejected reports whether the verdict blocks the transition.
func (v Verdict) Rejected() bool {
	return v.rejected
}

// Reason returns the rejection message, falling back to DefaultRejectReason.
func (v Verdict) Reason() string {
	if !v.rejected {
		return ""
	}

	if v.message == "" {
		return DefaultRejectReason
	}

	return v.message
}

// Outcome classifies a transition attempt.
type Outcome int

const (
	// OutcomeSuccess means every guard passed and the caller may commit the target state.
	OutcomeSuccess Outcome = iota
	// OutcomeInvalidTransition means the graph has no edge between the two states.
	OutcomeInvalidTransition
	// OutcomeRejected means a guard declined the transition.
	OutcomeRejected

	// outcomeGuardError only labels metrics; a failing guard yields no Result.
	outcomeGuardError Outcome = -1
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidTransition:
		return "invalid_transition"
	case OutcomeRejected:
		return "rejected"
	case outcomeGuardError:
		return "guard_error"
	default:
		return "unknown"
	}
}

// Result is the outcome of a single Engine.Transition call.
type Result struct {
	Outcome Outcome
	Reason  string

	from string
	to   string
}

// OK reports whether the transition was allowed.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Err converts a failed result into a *TransitionError. It returns nil on success.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeSuccess:
		return nil
	case OutcomeInvalidTransition:
		return &TransitionError{From: r.from, To: r.to, Reason: r.Reason, Err: ErrInvalidTransition}
	default:
		return &TransitionError{From: r.from, To: r.to, Reason: r.Reason, Err: ErrTransitionRejected}
	}
}
