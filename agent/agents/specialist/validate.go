package specialist

import (
	"context"
	"slices"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
)

func newCandidateID() string { return uuid.NewString() }

// futureDate normalizes input and rejects days before today.
func (e *Engine) futureDate(field, input string) (string, error) {
	date, err := scheduling.ParseDate(input, e.now())
	if err != nil {
		return "", err
	}
	if date < e.today() {
		return "", &contractx.ValidationError{Field: field, Reason: date + " is in the past"}
	}
	return date, nil
}

// bookableClock normalizes input and requires a future slot on the grid.
func (e *Engine) bookableClock(field, date, input string) (string, error) {
	clock, err := scheduling.ParseClock(input)
	if err != nil {
		return "", err
	}
	if !e.grid.Contains(clock) {
		return "", &contractx.ValidationError{
			Field:   field,
			Reason:  clock + " is outside clinic hours",
			Options: e.grid.Slots(),
		}
	}
	if now := e.now(); date == e.today() && clock <= now.Format("15:04") {
		return "", &contractx.ValidationError{Field: field, Reason: clock + " today has already passed"}
	}
	return clock, nil
}

// ensureOpen checks the slot against the provider's availability that day.
func (e *Engine) ensureOpen(ctx context.Context, provider, date, clock string) *toolx.Failure {
	open, f := result[[]string](e.gateway.Availability(ctx, provider, date))
	if f != nil {
		return f
	}
	if slices.Contains(open, clock) {
		return nil
	}
	return fail(&contractx.ConflictError{Provider: provider, Date: date, Time: clock, OpenSlots: open})
}

// locate finds an existing appointment by id, or by date with an optional
// time.
func (e *Engine) locate(ctx context.Context, patientID, id, date, clock string) (scheduling.Appointment, *toolx.Failure) {
	if id != "" {
		return result[scheduling.Appointment](e.gateway.GetAppointment(ctx, patientID, id))
	}
	day, err := scheduling.ParseDate(date, e.now())
	if err != nil {
		return scheduling.Appointment{}, fail(err)
	}
	if clock != "" {
		if clock, err = scheduling.ParseClock(clock); err != nil {
			return scheduling.Appointment{}, fail(err)
		}
	}
	return result[scheduling.Appointment](e.gateway.FindAppointment(ctx, patientID, day, clock))
}
