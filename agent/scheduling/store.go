package scheduling

import "context"

// Store is the authoritative appointment collection. Every mutating method
// performs its conflict check and write as one atomic unit.
type Store interface {
	// GetByPatient returns active appointments sorted by (date, time).
	GetByPatient(ctx context.Context, patientID string) ([]Appointment, error)
	// FindByPatientAndDate returns the single active match. Zero matches is a
	// NotFoundError; several is a MultipleMatchError. clock may be empty.
	FindByPatientAndDate(ctx context.Context, patientID, date, clock string) (Appointment, error)
	Add(ctx context.Context, req NewAppointment) (Appointment, error)
	CancelByID(ctx context.Context, id string) (Appointment, error)
	Reschedule(ctx context.Context, id, newDate, newClock string) (Appointment, error)
	AvailabilityFor(ctx context.Context, provider, date string) ([]string, error)

	Providers(ctx context.Context) ([]Provider, error)
	ProvidersForPatient(ctx context.Context, patientID string) ([]string, error)
	LocationFor(ctx context.Context, provider string) (string, error)
}
