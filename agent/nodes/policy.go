package orchestratornode

import (
	"errors"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

const (
	DefaultMaxHops = 4

	TroubleMessage = "I'm having trouble processing that right now. Please try again in a moment."
)

// strongestIntent picks the most confident actionable intent recorded
// before verification.
func strongestIntent(intents []statex.Intent) (statex.Intent, bool) {
	var (
		best  statex.Intent
		found bool
	)
	for _, in := range intents {
		if !in.Kind.Actionable() {
			continue
		}
		if !found || in.Confidence > best.Confidence {
			best, found = in, true
		}
	}
	return best, found
}

// recoverable errors turn into TroubleMessage with the session left as it
// was before the turn.
func recoverable(err error) bool {
	return errors.Is(err, contractx.ErrModelInvoke) ||
		errors.Is(err, contractx.ErrSchemaViolation) ||
		errors.Is(err, contractx.ErrInternal)
}

func intentFor(flow statex.FlowName) statex.IntentKind {
	switch flow {
	case statex.FlowAdd:
		return statex.IntentAdd
	case statex.FlowCancel:
		return statex.IntentCancel
	case statex.FlowReschedule:
		return statex.IntentReschedule
	default:
		return ""
	}
}
