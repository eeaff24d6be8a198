package scheduling

import "time"

const DefaultLocation = "123 Main St, Anytown, USA"

// DemoRoster is the open provider directory used by the demo clinic.
func DemoRoster() []Provider {
	return []Provider{
		{Name: "Dr. Lang Smith", Location: "123 Main St, Anytown, USA"},
		{Name: "Dr. Jim Beam", Location: "789 Main St, Anytown, USA"},
		{Name: "Dr. Jill Johnson", Location: "101 Main St, Anytown, USA"},
		{Name: "Dr. Jack Daniels", Location: "123 Main St, Anytown, USA"},
	}
}

// DemoAppointments seeds bookings relative to today.
func DemoAppointments(today time.Time) []Appointment {
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format(DateLayout) }
	created := today.UTC()
	return []Appointment{
		{ID: "1", PatientID: "1", Date: day(0), Time: "10:00", Location: "123 Main St, Anytown, USA", Provider: "Dr. Lang Smith", Reason: "Annual physical", Status: StatusConfirmed, CreatedAt: created},
		{ID: "2", PatientID: "1", Date: day(1), Time: "11:00", Location: "456 Main St, Anytown, USA", Provider: "Dr. Lang Smith", Reason: "Follow-up", Status: StatusConfirmed, CreatedAt: created},
		{ID: "3", PatientID: "1", Date: day(14), Time: "12:00", Location: "456 Main St, Anytown, USA", Provider: "Dr. Lang Smith", Reason: "Check up", Status: StatusConfirmed, CreatedAt: created},
		{ID: "4", PatientID: "2", Date: day(0), Time: "12:00", Location: "789 Main St, Anytown, USA", Provider: "Dr. Jim Beam", Reason: "Annual physical", Status: StatusConfirmed, CreatedAt: created},
		{ID: "5", PatientID: "2", Date: day(1), Time: "13:00", Location: "101 Main St, Anytown, USA", Provider: "Dr. Jill Johnson", Reason: "Follow-up", Status: StatusConfirmed, CreatedAt: created},
		{ID: "6", PatientID: "3", Date: day(7), Time: "14:00", Location: "123 Main St, Anytown, USA", Provider: "Dr. Jack Daniels", Reason: "Annual physical", Status: StatusConfirmed, CreatedAt: created},
		{ID: "7", PatientID: "3", Date: day(14), Time: "15:00", Location: "456 Main St, Anytown, USA", Provider: "Dr. Jim Beam", Reason: "Follow-up", Status: StatusConfirmed, CreatedAt: created},
	}
}

// NewDemoStore returns a MemoryStore seeded with the demo clinic.
func NewDemoStore(today time.Time, opts ...MemoryOption) *MemoryStore {
	base := []MemoryOption{WithRoster(DemoRoster()), WithAppointments(DemoAppointments(today))}
	return NewMemoryStore(append(base, opts...)...)
}
