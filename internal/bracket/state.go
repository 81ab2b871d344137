package bracket

import (
	"slices"

	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// State is the lifecycle state of a bracket order.
type State string

const (
	StateBuilt           State = "BUILT"
	StateSubmitted       State = "SUBMITTED"
	StateWorking         State = "WORKING"
	StatePartiallyFilled State = "PARTIALLY_FILLED"
	StateFilled          State = "FILLED"
	StateClosed          State = "CLOSED"
	StateRejected        State = "REJECTED"
	StateCancelled       State = "CANCELLED"
)

var transitions = map[State][]State{
	StateBuilt:           {StateSubmitted, StateRejected, StateCancelled},
	StateSubmitted:       {StateWorking, StateRejected, StateCancelled},
	StateWorking:         {StatePartiallyFilled, StateFilled, StateClosed, StateRejected, StateCancelled},
	StatePartiallyFilled: {StateFilled, StateClosed, StateCancelled},
	StateFilled:          {StateClosed, StateCancelled},
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateRejected || s == StateCancelled
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return errors.Newf(errors.ErrCodeInvalidTransition, "illegal bracket transition %s -> %s", from, to)
	}

	return nil
}
