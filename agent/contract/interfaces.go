package contract

import (
	"context"

	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

// Reasoner is the language collaborator. It parses and classifies only; it
// never runs protocol steps.
type Reasoner interface {
	ExtractIdentity(ctx context.Context, req IdentityRequest) (IdentityExtraction, error)
	ClassifyIntent(ctx context.Context, req IntentRequest) (IntentResult, error)
	DecideNewPatient(ctx context.Context, req DecisionRequest) (bool, error)
	DecideConfirm(ctx context.Context, req DecisionRequest) (bool, error)
	ExtractAppointment(ctx context.Context, req AppointmentRequest) (AppointmentExtraction, error)
}

// Directory resolves caller-supplied identity fields to a registered profile.
type Directory interface {
	Lookup(ctx context.Context, fields statex.IdentityFields) (statex.Profile, bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}
