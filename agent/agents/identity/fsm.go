package identity

import (
	"fmt"

	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

var validTransitions = map[statex.Phase][]statex.Phase{
	statex.PhaseCollecting: {statex.PhaseCollecting, statex.PhaseVerifying, statex.PhaseEscalated},
	statex.PhaseVerifying:  {statex.PhaseConfirmed, statex.PhaseCorrecting, statex.PhaseEscalated},
	statex.PhaseCorrecting: {statex.PhaseCorrecting, statex.PhaseVerifying, statex.PhaseEscalated},
	statex.PhaseConfirmed:  {statex.PhaseEscalated},
}

// InvalidTransitionError is an identity phase change the gate does not allow.
type InvalidTransitionError struct {
	From statex.Phase
	To   statex.Phase
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid identity transition from %s to %s", e.From, e.To)
}

func transitionValid(from, to statex.Phase) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns to.
func Transition(from, to statex.Phase) (statex.Phase, error) {
	if from == "" {
		from = statex.PhaseCollecting
	}
	if !transitionValid(from, to) {
		return from, &InvalidTransitionError{From: from, To: to}
	}
	return to, nil
}
