// Package router decides which handler owns a turn and manages the
// delegation stack.
package router

import (
	"fmt"
	"time"

	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

type TargetKind string

const (
	TargetEscalated TargetKind = "escalated"
	TargetIdentity  TargetKind = "identity"
	TargetPrimary   TargetKind = "primary"
	TargetFlow      TargetKind = "flow"
)

type Target struct {
	Kind TargetKind
	Flow statex.FlowName
}

func (t Target) String() string {
	if t.Kind == TargetFlow {
		return string(t.Kind) + ":" + string(t.Flow)
	}
	return string(t.Kind)
}

// Route is pure: escalation wins, then the identity gate, then the stack top.
func Route(sess *statex.Session) Target {
	switch {
	case sess == nil:
		return Target{Kind: TargetIdentity}
	case sess.Phase == statex.PhaseEscalated || sess.Escalation != statex.EscalationNone:
		return Target{Kind: TargetEscalated}
	case !sess.Verified:
		return Target{Kind: TargetIdentity}
	}
	if top, ok := sess.Top(); ok {
		return Target{Kind: TargetFlow, Flow: top}
	}
	return Target{Kind: TargetPrimary}
}

const ResumeNotice = "Resuming dialog with the primary assistant. Please reflect on the past conversation and assist the user as needed."

var flowTitles = map[statex.FlowName]string{
	statex.FlowAdd:        "Add Appointment Assistant",
	statex.FlowCancel:     "Cancel Appointment Assistant",
	statex.FlowReschedule: "Reschedule Appointment Assistant",
}

func Title(flow statex.FlowName) string {
	if t, ok := flowTitles[flow]; ok {
		return t
	}
	return string(flow)
}

// EntryNotice is recorded when control moves to flow.
func EntryNotice(flow statex.FlowName) string {
	return fmt.Sprintf("The assistant is now the %s. The user's intent is unsatisfied. "+
		"The action is not complete until the appointment tool succeeds. "+
		"If the user changes their mind or needs help with something else, control returns to the primary assistant.", Title(flow))
}

// Enter pushes flow and records its entry notice.
func Enter(flow statex.FlowName, now time.Time) statex.Patch {
	return statex.Patch{
		Stack:    []statex.StackOp{statex.Push(flow)},
		Messages: []statex.Message{statex.NoticeMessage(EntryNotice(flow), now)},
	}
}

// Leave pops the current flow and drops its suspension. reason is kept in
// the notice when given.
func Leave(sess *statex.Session, reason string, now time.Time) statex.Patch {
	notice := ResumeNotice
	if top, ok := sess.Top(); ok && reason != "" {
		notice = fmt.Sprintf("%s left: %s. %s", Title(top), reason, ResumeNotice)
	}
	return statex.Patch{
		Stack:        []statex.StackOp{statex.Pop()},
		ClearPending: true,
		Messages:     []statex.Message{statex.NoticeMessage(notice, now)},
	}
}
