package orchestratornode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

// PublishEvents runs after the session is saved. Publish failures are logged
// and never undo a committed change.
func PublishEvents(ctx context.Context, in *GraphState, publisher contractx.EventPublisher) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if publisher == nil || in.Degraded {
		return in, nil
	}
	for _, ev := range in.Events {
		if err := publisher.Publish(ctx, ev); err != nil {
			log.Error().Err(err).
				Str("thread_id", in.ThreadID).
				Str("event", string(ev.Type)).
				Str("appointment_id", ev.AppointmentID).
				Msg("failed to publish event")
		}
	}
	return in, nil
}
