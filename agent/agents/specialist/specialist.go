// Package specialist drives the add, cancel and reschedule flows through the
// propose, confirm and commit protocol, and serves the read-only list.
package specialist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/router"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
)

const recentWindow = 6

type Deps struct {
	Reasoner    contractx.Reasoner
	Gateway     *toolx.Gateway
	Preferences scheduling.PreferenceStore // optional
	Grid        scheduling.SlotGrid
	Now         func() time.Time
	NewID       func() string
}

// Request carries one utterance to the flow on top of the stack. Seed holds
// fields known before the flow started, such as an appointment id detected
// by the primary assistant.
type Request struct {
	Flow      statex.FlowName
	Session   *statex.Session
	Utterance string
	Seed      statex.Draft
}

type Response struct {
	Patch     statex.Patch
	Reply     string
	Events    []contractx.Event
	Left      bool
	Continue  bool // the flow left without finishing; re-route the same utterance
	Committed bool
}

type Engine struct {
	reasoner contractx.Reasoner
	gateway  *toolx.Gateway
	prefs    scheduling.PreferenceStore
	grid     scheduling.SlotGrid
	now      func() time.Time
	newID    func() string
	flows    map[statex.FlowName]protocol
	runner   compose.Runnable[Request, Response]
}

func New(ctx context.Context, deps Deps) (*Engine, error) {
	if deps.Reasoner == nil {
		return nil, errors.New("specialist: reasoner is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("specialist: gateway is required")
	}
	e := &Engine{
		reasoner: deps.Reasoner,
		gateway:  deps.Gateway,
		prefs:    deps.Preferences,
		grid:     deps.Grid,
		now:      deps.Now,
		newID:    deps.NewID,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = newCandidateID
	}
	e.flows = map[statex.FlowName]protocol{
		statex.FlowAdd:        addProtocol{e},
		statex.FlowCancel:     cancelProtocol{e},
		statex.FlowReschedule: rescheduleProtocol{e},
	}

	runner, err := compileFlowRuntimeGraph(ctx, e.prepare, e.collect, e.confirm)
	if err != nil {
		return nil, err
	}
	e.runner = runner
	return e, nil
}

// Handle runs one step of the flow named in req.
func (e *Engine) Handle(ctx context.Context, req Request) (Response, error) {
	return e.runner.Invoke(ctx, req)
}

// protocol is one flow's validate/find and commit behavior. propose returns
// either a candidate with its proposal text or the failure to show.
type protocol interface {
	propose(ctx context.Context, sess *statex.Session, d statex.Draft) (*statex.Candidate, string, *toolx.Failure)
	commit(ctx context.Context, c *statex.Candidate) (scheduling.Appointment, *toolx.Failure)
	succeeded(appt scheduling.Appointment, c *statex.Candidate) string
	event() contractx.EventType
	missing(d statex.Draft) []string
}

func (e *Engine) prepare(_ context.Context, req Request) (*flowGraphState, error) {
	if req.Session == nil {
		return nil, fmt.Errorf("%w: session is required", contractx.ErrValidation)
	}
	if !req.Session.Verified || req.Session.Profile == nil {
		return nil, fmt.Errorf("%w: flow %s requires a verified caller", contractx.ErrValidation, req.Flow)
	}
	proto, ok := e.flows[req.Flow]
	if !ok {
		return nil, fmt.Errorf("%w: unknown flow %q", contractx.ErrValidation, req.Flow)
	}
	st := &flowGraphState{Req: req, Proto: proto, Draft: req.Seed}
	if pending := req.Session.PendingFor(string(req.Flow)); pending != nil {
		st.Pending = pending
		st.Draft = pending.Draft.Merge(req.Seed)
	}
	return st, nil
}

func (e *Engine) collect(ctx context.Context, st *flowGraphState) (Response, error) {
	req := st.Req
	ext, err := e.extract(ctx, st, st.Draft)
	if err != nil {
		return Response{}, err
	}
	if ext.Leave {
		return e.leave(req.Session, ext.LeaveReason), nil
	}
	return e.proposeOrAsk(ctx, st, st.Draft.Merge(ext.Draft)), nil
}

func (e *Engine) confirm(ctx context.Context, st *flowGraphState) (Response, error) {
	req := st.Req
	pending := st.Pending
	sess := req.Session

	yes, err := e.reasoner.DecideConfirm(ctx, contractx.DecisionRequest{
		Utterance: req.Utterance,
		Question:  pending.Question,
	})
	if err != nil {
		return Response{}, err
	}

	if !yes {
		ext, err := e.extract(ctx, st, pending.Draft)
		if err != nil {
			return Response{}, err
		}
		if ext.Leave {
			return e.leave(sess, ext.LeaveReason), nil
		}
		if updated := pending.Draft.Merge(ext.Draft); updated != pending.Draft {
			return e.proposeOrAsk(ctx, st, updated), nil
		}
		return e.ask(req.Flow, pending.Draft, msgNothingChanged), nil
	}

	cand := pending.Candidate
	conf := Confirmation{CandidateID: cand.ID, Decision: true, MessageIndex: sess.LastUserIndex()}
	if err := CommitGate(cand, conf, sess.FirstUserIndexFrom(pending.AskedAt)); err != nil {
		if !errors.Is(err, ErrCommitRefused) {
			return Response{}, err
		}
		log.Warn().Err(err).Str("thread_id", sess.ThreadID).Str("flow", string(req.Flow)).Msg("confirmation not bound to proposal")
		return e.proposeOrAsk(ctx, st, pending.Draft), nil
	}

	appt, failure := st.Proto.commit(ctx, cand)
	if failure != nil {
		if failure.Kind == contractx.KindInternal {
			// The suspension stays as is; the caller may confirm again.
			return Response{Reply: failure.Message}, nil
		}
		return e.ask(req.Flow, stale(pending.Draft, failure.Kind), failure.Message), nil
	}

	log.Info().
		Str("thread_id", sess.ThreadID).
		Str("flow", string(req.Flow)).
		Str("appointment_id", appt.ID).
		Msg("appointment committed")

	return Response{
		Patch:     router.Leave(sess, "", e.now()),
		Reply:     st.Proto.succeeded(appt, cand),
		Events:    []contractx.Event{e.newEvent(st.Proto.event(), sess, appt)},
		Left:      true,
		Committed: true,
	}, nil
}

func (e *Engine) extract(ctx context.Context, st *flowGraphState, base statex.Draft) (contractx.AppointmentExtraction, error) {
	req := st.Req
	return e.reasoner.ExtractAppointment(ctx, contractx.AppointmentRequest{
		Flow:      req.Flow,
		Utterance: req.Utterance,
		Draft:     base,
		Missing:   st.Proto.missing(base),
		Today:     e.today(),
		Recent:    req.Session.Recent(recentWindow),
	})
}

func (e *Engine) proposeOrAsk(ctx context.Context, st *flowGraphState, draft statex.Draft) Response {
	cand, proposal, failure := st.Proto.propose(ctx, st.Req.Session, draft)
	if failure != nil {
		return e.ask(st.Req.Flow, draft, failure.Message)
	}
	return Response{
		Patch: statex.Patch{Pending: &statex.Suspension{
			Owner:     string(st.Req.Flow),
			Step:      statex.StepConfirm,
			Question:  proposal,
			Draft:     draft,
			Candidate: cand,
			AskedAt:   len(st.Req.Session.Messages),
		}},
		Reply: proposal,
	}
}

// ask suspends the flow in collection. Any candidate is discarded.
func (e *Engine) ask(flow statex.FlowName, draft statex.Draft, question string) Response {
	return Response{
		Patch: statex.Patch{Pending: &statex.Suspension{
			Owner:    string(flow),
			Step:     statex.StepCollect,
			Question: question,
			Draft:    draft,
		}},
		Reply: question,
	}
}

func (e *Engine) leave(sess *statex.Session, reason string) Response {
	return Response{Patch: router.Leave(sess, reason, e.now()), Left: true, Continue: true}
}

func (e *Engine) today() string {
	return e.now().Format(scheduling.DateLayout)
}

func (e *Engine) newEvent(t contractx.EventType, sess *statex.Session, appt scheduling.Appointment) contractx.Event {
	return contractx.Event{
		Type:          t,
		ThreadID:      sess.ThreadID,
		PatientID:     appt.PatientID,
		AppointmentID: appt.ID,
		Provider:      appt.Provider,
		Date:          appt.Date,
		Time:          appt.Time,
		At:            e.now().UTC(),
	}
}

// stale drops the fields a commit failure proved wrong so collection asks
// for them again.
func stale(d statex.Draft, kind contractx.ErrorKind) statex.Draft {
	switch kind {
	case contractx.KindNotFound:
		d.AppointmentID, d.Date, d.Time = "", "", ""
	case contractx.KindConflict:
		d.Time, d.NewTime = "", ""
	}
	return d
}

// result unwraps a gateway outcome into its typed payload.
func result[T any](o toolx.Outcome) (T, *toolx.Failure) {
	var zero T
	if !o.OK {
		return zero, o.Error
	}
	v, ok := toolx.PayloadAs[T](o)
	if !ok {
		return zero, fail(fmt.Errorf("%w: unexpected payload %T from %s", contractx.ErrInternal, o.Payload, o.Tool))
	}
	return v, nil
}

func fail(err error) *toolx.Failure {
	return toolx.NewFailure("", err)
}
