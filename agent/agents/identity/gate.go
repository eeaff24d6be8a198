// Package identity verifies the caller against the patient directory before
// any scheduling work is allowed.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

const recentWindow = 6

// Result is one gate step. Patch is applied by the caller; Verified means the
// turn may continue to the primary assistant.
type Result struct {
	Patch     statex.Patch
	Reply     string
	Verified  bool
	Escalated bool
}

type Gate struct {
	reasoner  contractx.Reasoner
	directory contractx.Directory
	cfg       Config
}

func New(reasoner contractx.Reasoner, directory contractx.Directory, cfg Config) (*Gate, error) {
	if reasoner == nil {
		return nil, errors.New("identity: reasoner is required")
	}
	if directory == nil {
		return nil, errors.New("identity: directory is required")
	}
	return &Gate{reasoner: reasoner, directory: directory, cfg: cfg.withDefaults()}, nil
}

func (g *Gate) Config() Config { return g.cfg }

// Step consumes one caller utterance while the session is unverified.
func (g *Gate) Step(ctx context.Context, sess *statex.Session, utterance string) (Result, error) {
	if sess == nil {
		return Result{}, statex.ErrNilSession
	}
	if sess.Verified {
		return Result{Verified: true}, nil
	}
	if phaseOf(sess) == statex.PhaseEscalated {
		return g.Escalated(sess), nil
	}
	if p := sess.PendingFor(statex.OwnerIdentity); p != nil && p.Step == statex.StepNewPatient {
		return g.resumeNewPatient(ctx, sess, utterance, p)
	}
	return g.collect(ctx, sess, utterance)
}

// Urgent escalates to the emergency message from any non-terminal phase.
func (g *Gate) Urgent(sess *statex.Session, level int, reason string) (Result, error) {
	if _, err := Transition(phaseOf(sess), statex.PhaseEscalated); err != nil {
		return Result{}, err
	}
	log.Warn().Str("thread_id", sess.ThreadID).Int("urgency", level).Msg("urgent escalation")
	return Result{
		Patch: statex.Patch{
			Phase:        statex.PhaseEscalated,
			Escalation:   statex.EscalationUrgent,
			Urgency:      &statex.Urgency{Level: level, Reason: reason},
			ClearPending: true,
		},
		Reply:     UrgentMessage,
		Escalated: true,
	}, nil
}

// Exceeds reports whether level crosses the urgency threshold.
func (g *Gate) Exceeds(level int) bool {
	return level > g.cfg.UrgencyThreshold
}

// Escalated repeats the terminal message for an escalated session.
func (g *Gate) Escalated(sess *statex.Session) Result {
	reply := g.cfg.HandoffMessage()
	if sess.Escalation == statex.EscalationUrgent {
		reply = UrgentMessage
	}
	return Result{Reply: reply, Escalated: true}
}

/* ------------------------------ internals ------------------------------ */

func (g *Gate) collect(ctx context.Context, sess *statex.Session, utterance string) (Result, error) {
	ext, err := g.extract(ctx, sess, utterance)
	if err != nil {
		return Result{}, err
	}
	if g.Exceeds(ext.Urgency) {
		return g.Urgent(sess, ext.Urgency, ext.UrgencyReason)
	}

	fields := sess.Identity.Merge(ext.Fields)
	return g.verifyOrAsk(ctx, sess, fields, urgencyPatch(ext, fields))
}

func (g *Gate) resumeNewPatient(ctx context.Context, sess *statex.Session, utterance string, p *statex.Suspension) (Result, error) {
	isNew, err := g.reasoner.DecideNewPatient(ctx, contractx.DecisionRequest{Utterance: utterance, Question: p.Question})
	if err != nil {
		return Result{}, err
	}
	if isNew {
		return g.handoff(sess, statex.Patch{})
	}

	ext, err := g.extract(ctx, sess, utterance)
	if err != nil {
		return Result{}, err
	}
	if g.Exceeds(ext.Urgency) {
		return g.Urgent(sess, ext.Urgency, ext.UrgencyReason)
	}

	fields := sess.Identity.Merge(ext.Fields)
	if fields == sess.Identity {
		phase, err := Transition(phaseOf(sess), statex.PhaseCorrecting)
		if err != nil {
			return Result{}, err
		}
		reply := g.cfg.AskCorrection()
		return Result{
			Patch: statex.Patch{
				Phase:      phase,
				NewPatient: statex.Bool(false),
				Pending:    &statex.Suspension{Owner: statex.OwnerIdentity, Step: statex.StepCollect, Question: reply},
			},
			Reply: reply,
		}, nil
	}

	patch := urgencyPatch(ext, fields)
	patch.NewPatient = statex.Bool(false)
	return g.verifyOrAsk(ctx, sess, fields, patch)
}

func (g *Gate) verifyOrAsk(ctx context.Context, sess *statex.Session, fields statex.IdentityFields, patch statex.Patch) (Result, error) {
	from := phaseOf(sess)

	if missing := fields.Missing(); len(missing) > 0 {
		phase, err := Transition(from, from)
		if err != nil {
			return Result{}, err
		}
		firstTime := from == statex.PhaseCollecting && sess.Identity == (statex.IdentityFields{})
		reply := g.cfg.AskMissing(missing, firstTime)
		patch.Phase = phase
		patch.Pending = &statex.Suspension{Owner: statex.OwnerIdentity, Step: statex.StepCollect, Question: reply}
		return Result{Patch: patch, Reply: reply}, nil
	}

	phase, err := Transition(from, statex.PhaseVerifying)
	if err != nil {
		return Result{}, err
	}
	profile, found, err := g.directory.Lookup(ctx, fields)
	if err != nil {
		return Result{}, fmt.Errorf("%w: directory lookup: %v", contractx.ErrInternal, err)
	}

	if found {
		if _, err := Transition(phase, statex.PhaseConfirmed); err != nil {
			return Result{}, err
		}
		log.Info().Str("thread_id", sess.ThreadID).Str("patient_id", profile.ID).Msg("identity verified")
		patch.Phase = statex.PhaseConfirmed
		patch.Profile = &profile
		patch.Verified = statex.Bool(true)
		patch.NewPatient = statex.Bool(false)
		patch.ClearPending = true
		patch.Pending = nil
		return Result{Patch: patch, Reply: g.cfg.Greeting(profile.FirstName()), Verified: true}, nil
	}

	failures := sess.Corrections
	log.Info().Str("thread_id", sess.ThreadID).Int("failures", failures+1).Msg("identity lookup failed")
	if failures >= g.cfg.MaxCorrections {
		patch.Corrections = statex.Int(failures + 1)
		return g.handoffFrom(sess, phase, patch)
	}

	next, err := Transition(phase, statex.PhaseCorrecting)
	if err != nil {
		return Result{}, err
	}
	patch.Phase = next
	patch.Corrections = statex.Int(failures + 1)
	patch.Pending = &statex.Suspension{Owner: statex.OwnerIdentity, Step: statex.StepNewPatient, Question: NewPatientQuestion}
	return Result{Patch: patch, Reply: NewPatientQuestion}, nil
}

func (g *Gate) handoff(sess *statex.Session, patch statex.Patch) (Result, error) {
	return g.handoffFrom(sess, phaseOf(sess), patch)
}

func (g *Gate) handoffFrom(sess *statex.Session, from statex.Phase, patch statex.Patch) (Result, error) {
	if _, err := Transition(from, statex.PhaseEscalated); err != nil {
		return Result{}, err
	}
	log.Info().Str("thread_id", sess.ThreadID).Msg("new patient handoff")
	patch.Phase = statex.PhaseEscalated
	patch.Escalation = statex.EscalationNewPatient
	patch.NewPatient = statex.Bool(true)
	patch.ClearPending = true
	patch.Pending = nil
	return Result{Patch: patch, Reply: g.cfg.HandoffMessage(), Escalated: true}, nil
}

func (g *Gate) extract(ctx context.Context, sess *statex.Session, utterance string) (contractx.IdentityExtraction, error) {
	return g.reasoner.ExtractIdentity(ctx, contractx.IdentityRequest{
		Utterance: utterance,
		Known:     sess.Identity,
		Missing:   sess.Identity.Missing(),
		Recent:    sess.Recent(recentWindow),
	})
}

func urgencyPatch(ext contractx.IdentityExtraction, fields statex.IdentityFields) statex.Patch {
	patch := statex.Patch{Identity: &fields}
	if ext.Urgency > 0 {
		reason := ext.UrgencyReason
		if reason == "" {
			reason = "No urgency"
		}
		patch.Urgency = &statex.Urgency{Level: ext.Urgency, Reason: reason}
	}
	return patch
}

func phaseOf(sess *statex.Session) statex.Phase {
	if sess.Phase == "" {
		return statex.PhaseCollecting
	}
	return sess.Phase
}
