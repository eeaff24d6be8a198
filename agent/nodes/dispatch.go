package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/primary"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/router"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

// Dispatch routes the utterance until a handler answers without handing
// control on. Hand-offs happen after verification with a pending intent,
// after the primary assistant delegates, and after a flow leaves.
func Dispatch(ctx context.Context, in *GraphState, agents Agents, maxHops int) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}

	intent := in.Intent
	var seed statex.Draft

	for ; in.Hops < maxHops; in.Hops++ {
		target := router.Route(in.Session)
		log.Debug().
			Str("thread_id", in.ThreadID).
			Str("route", target.String()).
			Int("hop", in.Hops).
			Msg("dispatch")

		switch target.Kind {
		case router.TargetEscalated:
			apply(in, statex.Patch{}, agents.Gate.Escalated(in.Session).Reply)
			return in, nil

		case router.TargetIdentity:
			res, err := agents.Gate.Step(ctx, in.Session, in.Text)
			if err != nil {
				return fail(in, err)
			}
			apply(in, res.Patch, res.Reply)
			if !res.Verified {
				return in, nil
			}
			in.verified = &checkpoint{
				session: in.Session.Clone(),
				replies: append([]string(nil), in.Replies...),
			}
			best, ok := strongestIntent(in.Session.Intents)
			if !ok {
				return in, nil
			}
			intent = contractx.IntentResult{Kind: best.Kind, Confidence: best.Confidence}
			if in.Intent.Kind == best.Kind {
				intent.AppointmentID = in.Intent.AppointmentID
			}

		case router.TargetPrimary:
			if !in.Classified {
				if err := classify(ctx, in, agents.Reasoner); err != nil {
					return fail(in, err)
				}
				intent = in.Intent
			}
			res := agents.Primary.Handle(ctx, in.Session, intent)
			apply(in, res.Patch, res.Reply)
			if res.Delegate == "" {
				return in, nil
			}
			seed = res.Seed

		case router.TargetFlow:
			resp, err := agents.Flows.Handle(ctx, specialist.Request{
				Flow:      target.Flow,
				Session:   in.Session,
				Utterance: in.Text,
				Seed:      seed,
			})
			seed = statex.Draft{}
			if err != nil {
				return fail(in, err)
			}
			apply(in, resp.Patch, resp.Reply)
			in.Events = append(in.Events, resp.Events...)
			if !resp.Continue {
				return in, nil
			}
			if !in.Classified {
				if err := classify(ctx, in, agents.Reasoner); err != nil {
					return fail(in, err)
				}
			}
			intent = in.Intent
			if intent.Kind == intentFor(target.Flow) {
				// The caller just left this flow; do not re-enter it.
				intent = contractx.IntentResult{Kind: statex.IntentOther}
			}
		}
	}

	log.Warn().Str("thread_id", in.ThreadID).Int("hops", in.Hops).Msg("dispatch hop limit reached")
	if len(in.Replies) == 0 {
		apply(in, statex.Patch{}, primary.HelpMessage)
	}
	return in, nil
}

// apply folds a handler result into the turn. Replies are logged as
// assistant messages.
func apply(in *GraphState, p statex.Patch, reply string) {
	if reply = strings.TrimSpace(reply); reply != "" {
		p.Messages = append(append([]statex.Message(nil), p.Messages...), statex.AssistantMessage(reply, in.Now))
		in.Replies = append(in.Replies, reply)
	}
	in.Session.Apply(p, in.Now)
}

func fail(in *GraphState, err error) (*GraphState, error) {
	if !recoverable(err) {
		return nil, err
	}
	in.Events = nil
	if cp := in.verified; cp != nil {
		// Keep the verification; drop whatever ran after it.
		log.Error().Err(err).Str("thread_id", in.ThreadID).Msg("turn failed after verification")
		in.Session = cp.session
		in.Replies = cp.replies
		apply(in, statex.Patch{}, TroubleMessage)
		return in, nil
	}
	log.Error().Err(err).Str("thread_id", in.ThreadID).Msg("turn degraded")
	in.Degraded = true
	in.Replies = []string{TroubleMessage}
	return in, nil
}
