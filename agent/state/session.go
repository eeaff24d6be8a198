package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Session is the persistent source-of-truth for one conversation thread.
// - Gate: Phase + Verified + Profile (identity must be confirmed before scheduling)
// - Delegation: Stack (LIFO of flow names) + Pending (resumable continuation)
type Session struct {
	ThreadID string    `json:"thread_id"`
	Messages []Message `json:"messages,omitempty"`

	// Identity gate
	Profile     *Profile       `json:"profile,omitempty"`
	Identity    IdentityFields `json:"identity"`
	Phase       Phase          `json:"phase"`
	Verified    bool           `json:"verified"`
	NewPatient  bool           `json:"new_patient"`
	Corrections int            `json:"corrections"`
	Urgency     Urgency        `json:"urgency"`
	Escalation  Escalation     `json:"escalation,omitempty"`

	// Delegation
	Stack   []FlowName  `json:"stack,omitempty"` // LIFO: push on delegate, pop on leave
	Intents []Intent    `json:"intents,omitempty"`
	Pending *Suspension `json:"pending,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseVerifying  Phase = "verifying"
	PhaseConfirmed  Phase = "confirmed"
	PhaseCorrecting Phase = "correcting"
	PhaseEscalated  Phase = "escalated"
)

type Escalation string

const (
	EscalationNone       Escalation = ""
	EscalationNewPatient Escalation = "new_patient"
	EscalationUrgent     Escalation = "urgent"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleNotice    Role = "notice" // delegation notices, never shown to the caller
)

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type Profile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	DOB      string `json:"dob"`
	SSNLast4 string `json:"ssn_last4"`
}

// FirstName is used for greetings.
func (p *Profile) FirstName() string {
	if p == nil {
		return ""
	}
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

type Urgency struct {
	Level  int    `json:"level"`
	Reason string `json:"reason"`
}

type IntentKind string

const (
	IntentAdd        IntentKind = "add"
	IntentCancel     IntentKind = "cancel"
	IntentReschedule IntentKind = "reschedule"
	IntentList       IntentKind = "list"
	IntentOther      IntentKind = "other"
)

// Actionable reports whether the intent names a scheduling operation.
func (k IntentKind) Actionable() bool {
	switch k {
	case IntentAdd, IntentCancel, IntentReschedule, IntentList:
		return true
	default:
		return false
	}
}

type Intent struct {
	Kind       IntentKind `json:"kind"`
	Confidence float64    `json:"confidence"`
	Message    string     `json:"message,omitempty"`
}

type FlowName string

const (
	FlowAdd        FlowName = "add_appointment"
	FlowCancel     FlowName = "cancel_appointment"
	FlowReschedule FlowName = "reschedule_appointment"
)

func (f FlowName) Valid() bool {
	switch f {
	case FlowAdd, FlowCancel, FlowReschedule:
		return true
	default:
		return false
	}
}

// OwnerIdentity marks a suspension raised by the identity gate.
const OwnerIdentity = "identity"

type Step string

const (
	StepCollect    Step = "collect"
	StepConfirm    Step = "confirm"
	StepNewPatient Step = "new_patient"
)

// Suspension is a persisted continuation. The next user utterance resumes
// Owner at Step with the gathered Draft and pending Candidate. AskedAt is the
// message log length when Question was raised; only the first user message
// at or after it answers the question.
type Suspension struct {
	Owner     string     `json:"owner"`
	Step      Step       `json:"step"`
	Question  string     `json:"question,omitempty"`
	Draft     Draft      `json:"draft"`
	Candidate *Candidate `json:"candidate,omitempty"`
	AskedAt   int        `json:"asked_at,omitempty"`
}

// Draft holds fields gathered so far by a scheduling flow.
type Draft struct {
	AppointmentID string `json:"appointment_id,omitempty"`
	Provider      string `json:"provider,omitempty"`
	Date          string `json:"date,omitempty"`
	Time          string `json:"time,omitempty"`
	Reason        string `json:"reason,omitempty"`
	NewDate       string `json:"new_date,omitempty"`
	NewTime       string `json:"new_time,omitempty"`
}

// Merge overlays non-empty values from update.
func (d Draft) Merge(update Draft) Draft {
	out := d
	overlay := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	overlay(&out.AppointmentID, update.AppointmentID)
	overlay(&out.Provider, update.Provider)
	overlay(&out.Date, update.Date)
	overlay(&out.Time, update.Time)
	overlay(&out.Reason, update.Reason)
	overlay(&out.NewDate, update.NewDate)
	overlay(&out.NewTime, update.NewTime)
	return out
}

type Action string

const (
	ActionAdd        Action = "add"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

// Candidate is a validated but uncommitted proposal.
type Candidate struct {
	ID            string `json:"id"`
	Action        Action `json:"action"`
	AppointmentID string `json:"appointment_id,omitempty"`
	PatientID     string `json:"patient_id"`
	Provider      string `json:"provider"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Location      string `json:"location,omitempty"`
	Reason        string `json:"reason,omitempty"`
	PreviousDate  string `json:"previous_date,omitempty"`
	PreviousTime  string `json:"previous_time,omitempty"`
	FromPreferred bool   `json:"from_preferred,omitempty"`
}

/* --------------------------- Session helpers --------------------------- */

var (
	ErrNilSession        = errors.New("nil session")
	ErrProfileMissing    = errors.New("verified session without profile")
	ErrStackCorrupt      = errors.New("delegation stack corrupt")
	ErrSuspensionInvalid = errors.New("pending suspension invalid")
)

func NewSession(threadID string, now time.Time) *Session {
	return &Session{
		ThreadID:  threadID,
		Phase:     PhaseCollecting,
		Urgency:   Urgency{Level: 1, Reason: "No urgency"},
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Top peeks at the delegation stack.
func (s *Session) Top() (FlowName, bool) {
	if s == nil || len(s.Stack) == 0 {
		return "", false
	}
	return s.Stack[len(s.Stack)-1], true
}

// LastUserIndex returns the log index of the latest user message, or -1.
func (s *Session) LastUserIndex() int {
	if s == nil {
		return -1
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// FirstUserIndexFrom returns the log index of the first user message at or
// after from, or -1.
func (s *Session) FirstUserIndexFrom(from int) int {
	if s == nil || from < 0 {
		return -1
	}
	for i := from; i < len(s.Messages); i++ {
		if s.Messages[i].Role == RoleUser {
			return i
		}
	}
	return -1
}

// Clone copies s deeply enough that patches applied to either side do not
// reach the other.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Stack = append([]FlowName(nil), s.Stack...)
	out.Intents = append([]Intent(nil), s.Intents...)
	if s.Profile != nil {
		profile := *s.Profile
		out.Profile = &profile
	}
	if s.Pending != nil {
		pending := *s.Pending
		if pending.Candidate != nil {
			c := *pending.Candidate
			pending.Candidate = &c
		}
		out.Pending = &pending
	}
	return &out
}

// Recent returns up to n trailing caller-visible messages.
func (s *Session) Recent(n int) []Message {
	if s == nil || n <= 0 {
		return nil
	}
	out := make([]Message, 0, n)
	for i := len(s.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if s.Messages[i].Role == RoleNotice {
			continue
		}
		out = append(out, s.Messages[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PendingFor returns the suspension when owner holds it.
func (s *Session) PendingFor(owner string) *Suspension {
	if s == nil || s.Pending == nil || s.Pending.Owner != owner {
		return nil
	}
	return s.Pending
}

// FlowOwnsPending reports whether a scheduling flow is waiting on the caller.
func (s *Session) FlowOwnsPending() bool {
	return s != nil && s.Pending != nil && FlowName(s.Pending.Owner).Valid()
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.Verified {
		if s.Profile == nil {
			return ErrProfileMissing
		}
		if s.Phase != PhaseConfirmed && s.Phase != PhaseEscalated {
			return fmt.Errorf("%w: verified session in phase %s", ErrProfileMissing, s.Phase)
		}
	}
	for _, f := range s.Stack {
		if !f.Valid() {
			return fmt.Errorf("%w: unknown flow %q", ErrStackCorrupt, f)
		}
	}
	if p := s.Pending; p != nil {
		switch {
		case p.Owner == OwnerIdentity:
			if s.Verified {
				return fmt.Errorf("%w: identity suspension on verified session", ErrSuspensionInvalid)
			}
		case FlowName(p.Owner).Valid():
			top, ok := s.Top()
			if !ok || string(top) != p.Owner {
				return fmt.Errorf("%w: owner %s is not the stack top", ErrSuspensionInvalid, p.Owner)
			}
		default:
			return fmt.Errorf("%w: unknown owner %q", ErrSuspensionInvalid, p.Owner)
		}
		if p.Step == StepConfirm && p.Candidate == nil {
			return fmt.Errorf("%w: confirm step without candidate", ErrSuspensionInvalid)
		}
	}
	return nil
}
