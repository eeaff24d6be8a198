package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

// LoadOrCreateState loads the session and records the caller's utterance.
func LoadOrCreateState(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := statex.LoadOrCreate(ctx, store, in.ThreadID, in.Now)
	if err != nil {
		return nil, err
	}
	sess.Apply(statex.Patch{Messages: []statex.Message{statex.UserMessage(in.Text, in.Now)}}, in.Now)
	in.Session = sess
	return in, nil
}
