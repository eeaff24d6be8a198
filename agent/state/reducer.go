package state

import (
	"strings"
	"time"
)

type StackOpKind string

const (
	StackPush StackOpKind = "push"
	StackPop  StackOpKind = "pop"
)

type StackOp struct {
	Kind StackOpKind `json:"kind"`
	Flow FlowName    `json:"flow,omitempty"`
}

func Push(flow FlowName) StackOp { return StackOp{Kind: StackPush, Flow: flow} }

func Pop() StackOp { return StackOp{Kind: StackPop} }

// Patch is a partial session update. Collections merge through the reducers
// below; pointer fields overwrite when non-nil.
type Patch struct {
	Messages []Message `json:"messages,omitempty"`
	Stack    []StackOp `json:"stack,omitempty"`
	Intents  []Intent  `json:"intents,omitempty"`

	Profile     *Profile        `json:"profile,omitempty"`
	Identity    *IdentityFields `json:"identity,omitempty"`
	Phase       Phase           `json:"phase,omitempty"`
	Verified    *bool           `json:"verified,omitempty"`
	NewPatient  *bool           `json:"new_patient,omitempty"`
	Corrections *int            `json:"corrections,omitempty"`
	Urgency     *Urgency        `json:"urgency,omitempty"`
	Escalation  Escalation      `json:"escalation,omitempty"`

	Pending      *Suspension `json:"pending,omitempty"`
	ClearPending bool        `json:"clear_pending,omitempty"`
}

// Then concatenates q after p; later scalar values win.
func (p Patch) Then(q Patch) Patch {
	out := p
	out.Messages = append(append([]Message(nil), p.Messages...), q.Messages...)
	out.Stack = append(append([]StackOp(nil), p.Stack...), q.Stack...)
	out.Intents = append(append([]Intent(nil), p.Intents...), q.Intents...)
	if q.Profile != nil {
		out.Profile = q.Profile
	}
	if q.Identity != nil {
		out.Identity = q.Identity
	}
	if q.Phase != "" {
		out.Phase = q.Phase
	}
	if q.Verified != nil {
		out.Verified = q.Verified
	}
	if q.NewPatient != nil {
		out.NewPatient = q.NewPatient
	}
	if q.Corrections != nil {
		out.Corrections = q.Corrections
	}
	if q.Urgency != nil {
		out.Urgency = q.Urgency
	}
	if q.Escalation != EscalationNone {
		out.Escalation = q.Escalation
	}
	if q.ClearPending {
		out.Pending = nil
		out.ClearPending = true
	}
	if q.Pending != nil {
		out.Pending = q.Pending
		out.ClearPending = false
	}
	return out
}

// Apply folds p into s.
func (s *Session) Apply(p Patch, now time.Time) {
	if s == nil {
		return
	}
	s.Messages = AppendMessages(s.Messages, p.Messages...)
	for _, op := range p.Stack {
		s.Stack = ReduceStack(s.Stack, op)
	}
	s.Intents = MergeIntents(s.Intents, p.Intents)

	if p.Profile != nil {
		profile := *p.Profile
		s.Profile = &profile
	}
	if p.Identity != nil {
		s.Identity = *p.Identity
	}
	if p.Phase != "" {
		s.Phase = p.Phase
	}
	if p.Verified != nil {
		s.Verified = *p.Verified
	}
	if p.NewPatient != nil {
		s.NewPatient = *p.NewPatient
	}
	if p.Corrections != nil {
		s.Corrections = *p.Corrections
	}
	if p.Urgency != nil {
		s.Urgency = *p.Urgency
	}
	if p.Escalation != EscalationNone {
		s.Escalation = p.Escalation
	}
	if p.ClearPending {
		s.Pending = nil
	}
	if p.Pending != nil {
		pending := *p.Pending
		if pending.Candidate != nil {
			c := *pending.Candidate
			pending.Candidate = &c
		}
		s.Pending = &pending
	}
	s.Touch(now)
}

/* ------------------------------ Reducers ------------------------------ */

// AppendMessages is the message-log reducer: append only.
func AppendMessages(log []Message, msgs ...Message) []Message {
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		log = append(log, m)
	}
	return log
}

// ReduceStack is the delegation-stack reducer. Pop on an empty stack is a no-op.
func ReduceStack(stack []FlowName, op StackOp) []FlowName {
	switch op.Kind {
	case StackPush:
		if op.Flow == "" {
			return stack
		}
		out := make([]FlowName, len(stack), len(stack)+1)
		copy(out, stack)
		return append(out, op.Flow)
	case StackPop:
		if len(stack) == 0 {
			return stack
		}
		out := make([]FlowName, len(stack)-1)
		copy(out, stack[:len(stack)-1])
		return out
	default:
		return stack
	}
}

// MergeIntents keeps the first record of each kind, in first-seen order.
func MergeIntents(existing, incoming []Intent) []Intent {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[IntentKind]struct{}, len(existing)+len(incoming))
	out := make([]Intent, 0, len(existing)+len(incoming))
	for _, in := range existing {
		if _, ok := seen[in.Kind]; ok {
			continue
		}
		seen[in.Kind] = struct{}{}
		out = append(out, in)
	}
	for _, in := range incoming {
		if in.Kind == "" {
			continue
		}
		if _, ok := seen[in.Kind]; ok {
			continue
		}
		seen[in.Kind] = struct{}{}
		out = append(out, in)
	}
	return out
}

/* ------------------------------ Builders ------------------------------ */

func Bool(v bool) *bool { return &v }

func Int(v int) *int { return &v }

func UserMessage(text string, now time.Time) Message {
	return Message{Role: RoleUser, Content: text, At: now.UTC()}
}

func AssistantMessage(text string, now time.Time) Message {
	return Message{Role: RoleAssistant, Content: text, At: now.UTC()}
}

func NoticeMessage(text string, now time.Time) Message {
	return Message{Role: RoleNotice, Content: text, At: now.UTC()}
}
