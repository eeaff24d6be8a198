package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/identity"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/primary"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/redact"
)

const recentWindow = 6

// Agents are the handlers a turn can be routed to.
type Agents struct {
	Reasoner contractx.Reasoner
	Gate     *identity.Gate
	Primary  *primary.Assistant
	Flows    *specialist.Engine
}

// ClassifyIntent runs once per turn unless a flow is waiting on the caller.
// Urgency above the gate threshold escalates immediately.
func ClassifyIntent(ctx context.Context, in *GraphState, agents Agents) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Session.FlowOwnsPending() {
		return in, nil
	}

	if err := classify(ctx, in, agents.Reasoner); err != nil {
		return fail(in, err)
	}
	if agents.Gate.Exceeds(in.Intent.Urgency) {
		res, err := agents.Gate.Urgent(in.Session, in.Intent.Urgency, in.Intent.UrgencyReason)
		if err != nil {
			return nil, err
		}
		apply(in, res.Patch, res.Reply)
	}
	return in, nil
}

// EscalatedReply answers a session that is already escalated.
func EscalatedReply(in *GraphState, gate *identity.Gate) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	apply(in, statex.Patch{}, gate.Escalated(in.Session).Reply)
	return in, nil
}

func classify(ctx context.Context, in *GraphState, reasoner contractx.Reasoner) error {
	out, err := reasoner.ClassifyIntent(ctx, contractx.IntentRequest{
		Utterance: in.Text,
		Recent:    in.Session.Recent(recentWindow),
	})
	if err != nil {
		return err
	}
	in.Intent = out
	in.Classified = true

	log.Debug().
		Str("thread_id", in.ThreadID).
		Str("intent", string(out.Kind)).
		Float64("confidence", out.Confidence).
		Int("urgency", out.Urgency).
		Str("utterance", redact.Text(in.Text)).
		Msg("intent classified")

	if !in.Session.Verified && out.Kind.Actionable() {
		in.Session.Apply(statex.Patch{Intents: []statex.Intent{{
			Kind:       out.Kind,
			Confidence: out.Confidence,
			Message:    in.Text,
		}}}, in.Now)
	}
	return nil
}
