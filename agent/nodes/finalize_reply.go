package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(strings.Join(in.Replies, "\n\n"))
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced no reply", contractx.ErrValidation)
	}

	out := GraphOutput{ThreadID: in.ThreadID, Reply: reply}
	if in.Session != nil && in.Session.Pending != nil && !in.Degraded {
		out.Pending = in.Session.Pending.Question
	}
	return out, nil
}
