package specialist

import (
	"errors"
	"fmt"

	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

var ErrCommitRefused = errors.New("commit refused")

// Confirmation binds a caller decision to one candidate and to the user
// message that expressed it.
type Confirmation struct {
	CandidateID  string
	Decision     bool
	MessageIndex int
}

// CommitGate allows a commit only for an affirmative confirmation of the
// pending candidate. answerIndex is the log index of the first user message
// after the proposal; the confirmation must come from that message.
func CommitGate(c *statex.Candidate, conf Confirmation, answerIndex int) error {
	switch {
	case c == nil:
		return fmt.Errorf("%w: no pending candidate", ErrCommitRefused)
	case c.ID == "" || conf.CandidateID != c.ID:
		return fmt.Errorf("%w: confirmation for %q does not match candidate %q", ErrCommitRefused, conf.CandidateID, c.ID)
	case !conf.Decision:
		return fmt.Errorf("%w: caller declined", ErrCommitRefused)
	case answerIndex < 0 || conf.MessageIndex != answerIndex:
		return fmt.Errorf("%w: message %d does not answer the proposal (want %d)", ErrCommitRefused, conf.MessageIndex, answerIndex)
	}
	return nil
}
