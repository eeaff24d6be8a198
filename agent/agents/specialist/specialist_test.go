package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/resilience"
)

var testNow = time.Date(2024, time.July, 10, 8, 0, 0, 0, time.UTC)

type scriptedReasoner struct {
	extracts []contractx.AppointmentExtraction
	confirms []bool
	err      error

	extractIdx int
	confirmIdx int
}

func (r *scriptedReasoner) ExtractIdentity(context.Context, contractx.IdentityRequest) (contractx.IdentityExtraction, error) {
	return contractx.IdentityExtraction{}, nil
}

func (r *scriptedReasoner) ClassifyIntent(context.Context, contractx.IntentRequest) (contractx.IntentResult, error) {
	return contractx.IntentResult{Kind: statex.IntentOther}, nil
}

func (r *scriptedReasoner) DecideNewPatient(context.Context, contractx.DecisionRequest) (bool, error) {
	return false, nil
}

func (r *scriptedReasoner) DecideConfirm(context.Context, contractx.DecisionRequest) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	if r.confirmIdx >= len(r.confirms) {
		return false, nil
	}
	out := r.confirms[r.confirmIdx]
	r.confirmIdx++
	return out, nil
}

func (r *scriptedReasoner) ExtractAppointment(context.Context, contractx.AppointmentRequest) (contractx.AppointmentExtraction, error) {
	if r.err != nil {
		return contractx.AppointmentExtraction{}, r.err
	}
	if r.extractIdx >= len(r.extracts) {
		return contractx.AppointmentExtraction{}, nil
	}
	out := r.extracts[r.extractIdx]
	r.extractIdx++
	return out, nil
}

type countingStore struct {
	*scheduling.MemoryStore
	adds        atomic.Int32
	cancels     atomic.Int32
	reschedules atomic.Int32
	addErr      error
}

func (s *countingStore) Add(ctx context.Context, req scheduling.NewAppointment) (scheduling.Appointment, error) {
	s.adds.Add(1)
	if s.addErr != nil {
		return scheduling.Appointment{}, s.addErr
	}
	return s.MemoryStore.Add(ctx, req)
}

func (s *countingStore) CancelByID(ctx context.Context, id string) (scheduling.Appointment, error) {
	s.cancels.Add(1)
	return s.MemoryStore.CancelByID(ctx, id)
}

func (s *countingStore) Reschedule(ctx context.Context, id, date, clock string) (scheduling.Appointment, error) {
	s.reschedules.Add(1)
	return s.MemoryStore.Reschedule(ctx, id, date, clock)
}

type harness struct {
	t        *testing.T
	engine   *Engine
	reasoner *scriptedReasoner
	store    *countingStore
	prefs    *scheduling.MemoryPreferences
	sess     *statex.Session
	flow     statex.FlowName
}

func newHarness(t *testing.T, flow statex.FlowName, patientID string, opts ...scheduling.MemoryOption) *harness {
	t.Helper()

	var seq atomic.Int64
	base := []scheduling.MemoryOption{scheduling.WithIDGenerator(func() string {
		return fmt.Sprintf("appt-%d", seq.Add(1))
	})}
	store := &countingStore{MemoryStore: scheduling.NewDemoStore(testNow, append(base, opts...)...)}
	reasoner := &scriptedReasoner{}
	prefs := scheduling.NewMemoryPreferences()

	var cand atomic.Int64
	engine, err := New(context.Background(), Deps{
		Reasoner:    reasoner,
		Gateway:     toolx.NewGateway(store, toolx.WithRetryPolicy(resilience.Policy{MaxAttempts: 1})),
		Preferences: prefs,
		Now:         func() time.Time { return testNow },
		NewID:       func() string { return fmt.Sprintf("cand-%d", cand.Add(1)) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	sess := statex.NewSession("thread-1", testNow)
	sess.Verified = true
	sess.Phase = statex.PhaseConfirmed
	sess.Profile = &statex.Profile{ID: patientID, Name: "John Doe"}
	sess.Stack = []statex.FlowName{flow}

	return &harness{t: t, engine: engine, reasoner: reasoner, store: store, prefs: prefs, sess: sess, flow: flow}
}

func (h *harness) say(text string) Response {
	h.t.Helper()
	h.sess.Apply(statex.Patch{Messages: []statex.Message{statex.UserMessage(text, testNow)}}, testNow)
	resp, err := h.engine.Handle(context.Background(), Request{Flow: h.flow, Session: h.sess, Utterance: text})
	if err != nil {
		h.t.Fatalf("Handle(%q) error = %v", text, err)
	}
	h.sess.Apply(resp.Patch, testNow)
	return resp
}

func extract(d statex.Draft) contractx.AppointmentExtraction {
	return contractx.AppointmentExtraction{Draft: d}
}

func TestAddConfirmYesCommitsExactlyOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "jim beam", Date: "July 12, 2024", Time: "2pm"}),
	}
	h.reasoner.confirms = []bool{true}

	resp := h.say("book me with Jim Beam on July 12 at 2pm")
	want := "I can schedule the following appointment: 2024-07-12 at 14:00 with Dr. Jim Beam at 789 Main St, Anytown, USA. Would you like me to confirm this? (yes/no)"
	if resp.Reply != want {
		t.Fatalf("proposal = %q", resp.Reply)
	}
	if h.sess.Pending == nil || h.sess.Pending.Step != statex.StepConfirm || h.sess.Pending.Candidate == nil {
		t.Fatalf("pending = %#v, want confirm step with candidate", h.sess.Pending)
	}
	if h.store.adds.Load() != 0 {
		t.Fatal("propose must not write")
	}

	resp = h.say("yes")
	if !resp.Committed || !resp.Left {
		t.Fatalf("Handle(yes) = %#v, want committed and left", resp)
	}
	if h.store.adds.Load() != 1 || h.store.Len() != 8 {
		t.Fatalf("adds=%d len=%d, want one new record", h.store.adds.Load(), h.store.Len())
	}
	if len(h.sess.Stack) != 0 || h.sess.Pending != nil {
		t.Fatalf("flow must leave after commit: stack=%v pending=%#v", h.sess.Stack, h.sess.Pending)
	}
	if len(resp.Events) != 1 || resp.Events[0].Type != contractx.EventAppointmentBooked || resp.Events[0].AppointmentID != "appt-1" {
		t.Fatalf("events = %#v", resp.Events)
	}
	if !strings.HasPrefix(resp.Reply, "I successfully scheduled") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if got, ok, _ := h.prefs.Preferred(context.Background(), "1"); !ok || got != "Dr. Jim Beam" {
		t.Fatalf("preference = %q, %v, want Dr. Jim Beam", got, ok)
	}
}

func TestAddReplayedYesDoesNotDuplicate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Dr. Jim Beam", Date: "2024-07-12", Time: "09:00"}),
	}
	h.reasoner.confirms = []bool{true, true}
	h.say("book Jim Beam 2024-07-12 at 9")

	snapshot := h.sess.Clone()

	first := h.say("yes")

	// A retried request replays the same confirmation against the old state.
	h.sess = snapshot
	second := h.say("yes")

	if !first.Committed || !second.Committed {
		t.Fatalf("first=%#v second=%#v", first, second)
	}
	if first.Events[0].AppointmentID != second.Events[0].AppointmentID {
		t.Fatalf("replay created %s, want %s", second.Events[0].AppointmentID, first.Events[0].AppointmentID)
	}
	if h.store.Len() != 8 {
		t.Fatalf("Len() = %d, want 8", h.store.Len())
	}
}

func TestConfirmationMustAnswerProposal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Dr. Jim Beam", Date: "2024-07-12", Time: "09:00"}),
	}
	h.reasoner.confirms = []bool{true, true}
	h.say("book Jim Beam 2024-07-12 at 9")
	proposal := h.sess.Pending.Question
	first := h.sess.Pending.Candidate.ID
	if h.sess.Pending.AskedAt != 1 {
		t.Fatalf("AskedAt = %d, want 1", h.sess.Pending.AskedAt)
	}

	// A user message logged after the proposal but never handled by the flow.
	h.sess.Apply(statex.Patch{Messages: []statex.Message{statex.UserMessage("hold on", testNow)}}, testNow)

	resp := h.say("yes")
	if resp.Committed || h.store.adds.Load() != 0 {
		t.Fatalf("Handle(yes) = %#v adds=%d, want no commit", resp, h.store.adds.Load())
	}
	if resp.Reply != proposal {
		t.Fatalf("reply = %q, want the proposal again", resp.Reply)
	}
	if h.sess.Pending == nil || h.sess.Pending.Candidate == nil || h.sess.Pending.Candidate.ID == first {
		t.Fatalf("pending = %#v, want a fresh candidate", h.sess.Pending)
	}

	resp = h.say("yes")
	if !resp.Committed || h.store.adds.Load() != 1 {
		t.Fatalf("Handle(yes) = %#v adds=%d, want one commit", resp, h.store.adds.Load())
	}
}

func TestAddConfirmNoDiscardsCandidate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Dr. Jim Beam", Date: "2024-07-12", Time: "09:00"}),
		extract(statex.Draft{}),
	}
	h.reasoner.confirms = []bool{false}
	h.say("book Jim Beam 2024-07-12 at 9")

	resp := h.say("no")
	if resp.Reply != msgNothingChanged {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if h.sess.Pending == nil || h.sess.Pending.Step != statex.StepCollect || h.sess.Pending.Candidate != nil {
		t.Fatalf("pending = %#v, want collect without candidate", h.sess.Pending)
	}
	if h.store.adds.Load() != 0 || h.store.Len() != 7 {
		t.Fatalf("adds=%d len=%d, want no mutation", h.store.adds.Load(), h.store.Len())
	}
}

func TestAddConfirmNoWithChangeReproposes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Dr. Jim Beam", Date: "2024-07-12", Time: "09:00"}),
		extract(statex.Draft{Time: "3pm"}),
	}
	h.reasoner.confirms = []bool{false}
	h.say("book Jim Beam 2024-07-12 at 9")
	first := h.sess.Pending.Candidate.ID

	resp := h.say("no, make it 3pm")
	if !strings.Contains(resp.Reply, "2024-07-12 at 15:00") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if h.sess.Pending.Candidate == nil || h.sess.Pending.Candidate.ID == first {
		t.Fatalf("candidate = %#v, want a fresh candidate", h.sess.Pending.Candidate)
	}
}

func TestAddAmbiguousProvider(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "4", scheduling.WithRoster([]scheduling.Provider{
		{Name: "Dr. John Doe"}, {Name: "Dr. Jane Doe"},
	}))
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Doe", Date: "2024-07-12", Time: "09:00"}),
	}

	resp := h.say("book with Doe on 2024-07-12 at 9")
	if !strings.Contains(resp.Reply, "Dr. John Doe") || !strings.Contains(resp.Reply, "Dr. Jane Doe") {
		t.Fatalf("reply = %q, want both matches", resp.Reply)
	}
	if h.sess.Pending == nil || h.sess.Pending.Candidate != nil {
		t.Fatalf("pending = %#v, want no candidate", h.sess.Pending)
	}
	if h.store.adds.Load() != 0 {
		t.Fatal("ambiguity must not commit")
	}
}

func TestAddConflictListsOpenSlots(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "2")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Lang Smith", Date: "today", Time: "10:00"}),
	}

	resp := h.say("Lang Smith today at 10")
	if !strings.Contains(resp.Reply, "already booked on 2024-07-10 at 10:00") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "09:00, 11:00") {
		t.Fatalf("reply = %q, want open slots", resp.Reply)
	}
	if h.store.adds.Load() != 0 {
		t.Fatal("conflict must not commit")
	}
}

func TestAddRejectsPastAndOffGrid(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "2")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Jim Beam", Date: "2024-07-01", Time: "10:00"}),
		extract(statex.Draft{Date: "2024-07-12", Time: "18:00"}),
	}

	if resp := h.say("July 1st at 10"); !strings.Contains(resp.Reply, "in the past") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if resp := h.say("July 12 at 6pm"); !strings.Contains(resp.Reply, "outside clinic hours") {
		t.Fatalf("reply = %q", resp.Reply)
	}
}

func TestAddUsesPreferredProvider(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	if err := h.prefs.SetPreferred(context.Background(), "1", "Dr. Jill Johnson"); err != nil {
		t.Fatalf("SetPreferred() error = %v", err)
	}
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Date: "2024-07-12", Time: "09:00"}),
	}

	resp := h.say("July 12 at 9")
	if !strings.Contains(resp.Reply, "preferred provider, Dr. Jill Johnson") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if c := h.sess.Pending.Candidate; c == nil || !c.FromPreferred {
		t.Fatalf("candidate = %#v, want FromPreferred", c)
	}
}

func TestAddMissingProviderListsOptions(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	resp := h.say("I need an appointment")
	if !strings.HasPrefix(resp.Reply, "I still need the following: provider, date, time.") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "Doctors you've seen before: Dr. Lang Smith.") {
		t.Fatalf("reply = %q, want known providers", resp.Reply)
	}
	if !strings.Contains(resp.Reply, "Dr. Jim Beam, Dr. Jill Johnson, Dr. Jack Daniels") {
		t.Fatalf("reply = %q, want open roster", resp.Reply)
	}
}

func TestAddInternalFailureKeepsSuspension(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.store.addErr = fmt.Errorf("%w: connection reset", contractx.ErrInternal)
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Provider: "Dr. Jim Beam", Date: "2024-07-12", Time: "09:00"}),
	}
	h.reasoner.confirms = []bool{true}
	h.say("book Jim Beam 2024-07-12 at 9")
	before := *h.sess.Pending

	resp := h.say("yes")
	if resp.Committed || !strings.HasPrefix(resp.Reply, "Failed to book the appointment due to internal system issue") {
		t.Fatalf("Handle(yes) = %#v", resp)
	}
	if h.sess.Pending == nil || h.sess.Pending.Candidate == nil || h.sess.Pending.Candidate.ID != before.Candidate.ID {
		t.Fatalf("pending = %#v, want unchanged", h.sess.Pending)
	}
}

func TestCancelByDate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowCancel, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{Date: "tomorrow"}),
	}
	h.reasoner.confirms = []bool{true}

	resp := h.say("cancel my appointment tomorrow")
	if !strings.HasPrefix(resp.Reply, "I found this appointment: 2024-07-11 at 11:00 with Dr. Lang Smith") ||
		!strings.HasSuffix(resp.Reply, "Would you like me to cancel this appointment? (yes/no)") {
		t.Fatalf("reply = %q", resp.Reply)
	}

	resp = h.say("yes")
	if !resp.Committed || resp.Events[0].Type != contractx.EventAppointmentCancelled {
		t.Fatalf("Handle(yes) = %#v", resp)
	}
	if h.store.cancels.Load() != 1 {
		t.Fatalf("cancels = %d", h.store.cancels.Load())
	}
	appts, _ := h.store.GetByPatient(context.Background(), "1")
	if len(appts) != 2 {
		t.Fatalf("active appointments = %d, want 2", len(appts))
	}
}

func TestCancelUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowCancel, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{AppointmentID: "4"}),
	}

	resp := h.say("cancel appointment 4")
	if !strings.Contains(resp.Reply, "couldn't find an active appointment with id 4") {
		t.Fatalf("reply = %q", resp.Reply)
	}
}

func TestRescheduleAsksForAllMissingFields(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowReschedule, "1")
	resp := h.say("I need to move an appointment")
	if resp.Reply != "I still need the following: appointment id or date, new date, new time." {
		t.Fatalf("reply = %q", resp.Reply)
	}
}

func TestRescheduleCancelledBeforeCommitIsNotFound(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowReschedule, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{AppointmentID: "2", NewDate: "2024-07-12", NewTime: "14:00"}),
	}
	h.reasoner.confirms = []bool{true}

	resp := h.say("move appointment 2 to July 12 at 2pm")
	if !strings.HasPrefix(resp.Reply, "I can reschedule your appointment with Dr. Lang Smith from 2024-07-11 at 11:00 to 2024-07-12 at 14:00.") {
		t.Fatalf("reply = %q", resp.Reply)
	}

	if _, err := h.store.MemoryStore.CancelByID(context.Background(), "2"); err != nil {
		t.Fatalf("CancelByID() error = %v", err)
	}

	resp = h.say("yes")
	if resp.Committed {
		t.Fatal("reschedule of a cancelled appointment must not commit")
	}
	if !strings.Contains(resp.Reply, "couldn't find an active appointment with id 2") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if h.store.Len() != 7 {
		t.Fatalf("Len() = %d, want no duplicate", h.store.Len())
	}
	if p := h.sess.Pending; p == nil || p.Step != statex.StepCollect || p.Draft.AppointmentID != "" || p.Draft.NewDate != "2024-07-12" {
		t.Fatalf("pending = %#v, want collect without original", p)
	}
}

func TestRescheduleRejectsSameSlot(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowReschedule, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		extract(statex.Draft{AppointmentID: "3", NewDate: "2024-07-24", NewTime: "12:00"}),
	}
	if resp := h.say("move 3 to the 24th at noon"); !strings.Contains(resp.Reply, "already on 2024-07-24 at 12:00") {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if h.store.reschedules.Load() != 0 {
		t.Fatal("same slot must not reach the store")
	}
}

func TestFlowLeaveContinues(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.extracts = []contractx.AppointmentExtraction{
		{Leave: true, LeaveReason: "user wants to list appointments"},
	}

	resp := h.say("actually, what appointments do I have?")
	if !resp.Left || !resp.Continue {
		t.Fatalf("Handle() = %#v, want leave with continue", resp)
	}
	if len(h.sess.Stack) != 0 {
		t.Fatalf("stack = %v, want empty", h.sess.Stack)
	}
	last := h.sess.Messages[len(h.sess.Messages)-1]
	if last.Role != statex.RoleNotice || !strings.HasPrefix(last.Content, "Add Appointment Assistant left: user wants to list appointments.") {
		t.Fatalf("notice = %#v", last)
	}
}

func TestReasonerErrorLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.reasoner.err = fmt.Errorf("%w: upstream 503", contractx.ErrModelInvoke)

	_, err := h.engine.Handle(context.Background(), Request{Flow: statex.FlowAdd, Session: h.sess, Utterance: "hi"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Handle() error = %v, want model invoke", err)
	}
}

func TestHandleRequiresVerifiedSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	h.sess.Verified = false
	_, err := h.engine.Handle(context.Background(), Request{Flow: statex.FlowAdd, Session: h.sess, Utterance: "hi"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Handle() error = %v, want validation", err)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, statex.FlowAdd, "1")
	ctx := context.Background()

	got := h.engine.List(ctx, h.sess, "")
	if !strings.HasPrefix(got, "Here are your upcoming appointments:\n1. [id 1] 2024-07-10 at 10:00") {
		t.Fatalf("List() = %q", got)
	}
	if strings.Count(got, "\n") != 3 {
		t.Fatalf("List() = %q, want three entries", got)
	}
	if got := h.engine.List(ctx, h.sess, "3"); !strings.HasPrefix(got, "Appointment 3: 2024-07-24 at 12:00") {
		t.Fatalf("List(3) = %q", got)
	}
	if got := h.engine.List(ctx, h.sess, "4"); !strings.Contains(got, "couldn't find") {
		t.Fatalf("List(other patient) = %q", got)
	}
}

func TestCommitGate(t *testing.T) {
	t.Parallel()

	c := &statex.Candidate{ID: "cand-1"}
	cases := []struct {
		name string
		cand *statex.Candidate
		conf Confirmation
		want int
		ok   bool
	}{
		{"matching", c, Confirmation{CandidateID: "cand-1", Decision: true, MessageIndex: 4}, 4, true},
		{"no candidate", nil, Confirmation{CandidateID: "cand-1", Decision: true, MessageIndex: 4}, 4, false},
		{"other candidate", c, Confirmation{CandidateID: "cand-2", Decision: true, MessageIndex: 4}, 4, false},
		{"declined", c, Confirmation{CandidateID: "cand-1", Decision: false, MessageIndex: 4}, 4, false},
		{"stale message", c, Confirmation{CandidateID: "cand-1", Decision: true, MessageIndex: 2}, 4, false},
		{"later message", c, Confirmation{CandidateID: "cand-1", Decision: true, MessageIndex: 6}, 4, false},
		{"no answer", c, Confirmation{CandidateID: "cand-1", Decision: true, MessageIndex: -1}, -1, false},
		{"empty id", &statex.Candidate{}, Confirmation{Decision: true, MessageIndex: 0}, 0, false},
	}
	for _, tc := range cases {
		err := CommitGate(tc.cand, tc.conf, tc.want)
		if tc.ok && err != nil {
			t.Fatalf("%s: CommitGate() error = %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrCommitRefused) {
			t.Fatalf("%s: CommitGate() error = %v, want refused", tc.name, err)
		}
	}
}
