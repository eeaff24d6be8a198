// Package primary is the assistant that owns a verified session when no flow
// is on the delegation stack.
package primary

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/router"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

const HelpMessage = "I can help you view, book, cancel or reschedule your appointments. What would you like to do?"

// MinDelegateConfidence is the classifier confidence below which a
// scheduling intent is confirmed with the caller instead of starting a flow.
const MinDelegateConfidence = 0.5

var clarifyFor = map[statex.IntentKind]string{
	statex.IntentAdd:        "Just to be sure, would you like to book a new appointment?",
	statex.IntentCancel:     "Just to be sure, would you like to cancel an appointment? If so, tell me which one.",
	statex.IntentReschedule: "Just to be sure, would you like to reschedule an appointment? If so, tell me which one and when.",
}

var flowFor = map[statex.IntentKind]statex.FlowName{
	statex.IntentAdd:        statex.FlowAdd,
	statex.IntentCancel:     statex.FlowCancel,
	statex.IntentReschedule: statex.FlowReschedule,
}

// Result is one primary step. A non-empty Delegate means the flow was pushed
// and should receive the same utterance with Seed.
type Result struct {
	Patch    statex.Patch
	Reply    string
	Delegate statex.FlowName
	Seed     statex.Draft
}

type Assistant struct {
	flows *specialist.Engine
	now   func() time.Time
}

func New(flows *specialist.Engine, now func() time.Time) (*Assistant, error) {
	if flows == nil {
		return nil, errors.New("primary: flow engine is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Assistant{flows: flows, now: now}, nil
}

func (a *Assistant) Handle(ctx context.Context, sess *statex.Session, intent contractx.IntentResult) Result {
	if flow, ok := flowFor[intent.Kind]; ok {
		if intent.Confidence < MinDelegateConfidence {
			log.Debug().
				Str("thread_id", sess.ThreadID).
				Str("intent", string(intent.Kind)).
				Float64("confidence", intent.Confidence).
				Msg("intent below delegation floor")
			return Result{Reply: clarifyFor[intent.Kind]}
		}
		return Result{
			Patch:    router.Enter(flow, a.now()),
			Delegate: flow,
			Seed:     statex.Draft{AppointmentID: intent.AppointmentID},
		}
	}
	if intent.Kind == statex.IntentList {
		return Result{Reply: a.flows.List(ctx, sess, intent.AppointmentID)}
	}
	return Result{Reply: HelpMessage}
}
