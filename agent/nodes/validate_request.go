package orchestratornode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidThread  = errors.New("thread id is empty")
)

type GraphInput struct {
	ThreadID string
	Text     string
}

type GraphOutput struct {
	ThreadID string
	Reply    string
	Pending  string
}

// GraphState is threaded through every node of one turn.
type GraphState struct {
	ThreadID string
	Text     string
	Now      time.Time

	Session    *statex.Session
	Intent     contractx.IntentResult
	Classified bool

	Replies []string
	Events  []contractx.Event
	Hops    int

	// Degraded turns answer with a recoverable message and persist nothing.
	Degraded bool

	// verified is the turn as of a successful identity step. A later
	// recoverable failure falls back to it instead of degrading.
	verified *checkpoint
}

type checkpoint struct {
	session *statex.Session
	replies []string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	threadID := strings.TrimSpace(in.ThreadID)
	if threadID == "" {
		return nil, ErrInvalidThread
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ThreadID: threadID,
		Text:     text,
		Now:      nowFn().UTC(),
	}, nil
}
