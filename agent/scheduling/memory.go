package scheduling

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

// MemoryStore is a process-wide in-memory Store. A single mutex covers every
// check-then-write so no other write to the same slot can interleave.
type MemoryStore struct {
	mu       sync.Mutex
	appts    []Appointment
	keys     map[string]string // idempotency key -> appointment id
	roster   []Provider
	grid     SlotGrid
	fallback string

	newID func() string
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

type MemoryOption func(*MemoryStore)

func WithRoster(roster []Provider) MemoryOption {
	return func(m *MemoryStore) { m.roster = append([]Provider(nil), roster...) }
}

func WithAppointments(appts []Appointment) MemoryOption {
	return func(m *MemoryStore) { m.appts = append([]Appointment(nil), appts...) }
}

func WithGrid(g SlotGrid) MemoryOption {
	return func(m *MemoryStore) { m.grid = g.normalized() }
}

func WithDefaultLocation(loc string) MemoryOption {
	return func(m *MemoryStore) {
		if strings.TrimSpace(loc) != "" {
			m.fallback = strings.TrimSpace(loc)
		}
	}
}

func WithIDGenerator(fn func() string) MemoryOption {
	return func(m *MemoryStore) {
		if fn != nil {
			m.newID = fn
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		keys:     make(map[string]string),
		grid:     DefaultGrid,
		fallback: DefaultLocation,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *MemoryStore) GetByPatient(_ context.Context, patientID string) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Appointment
	for _, a := range m.appts {
		if a.Active() && a.PatientID == patientID {
			out = append(out, a)
		}
	}
	sortAppointments(out)
	return out, nil
}

func (m *MemoryStore) FindByPatientAndDate(_ context.Context, patientID, date, clock string) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []Appointment
	for _, a := range m.appts {
		if !a.Active() || a.PatientID != patientID || a.Date != date {
			continue
		}
		if clock != "" && a.Time != clock {
			continue
		}
		matches = append(matches, a)
	}
	return singleMatch(matches, date, clock)
}

func (m *MemoryStore) Add(_ context.Context, req NewAppointment) (Appointment, error) {
	if err := req.validate(); err != nil {
		return Appointment{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Key != "" {
		if id, ok := m.keys[req.Key]; ok {
			if i := m.indexOf(id); i >= 0 {
				return m.appts[i], nil
			}
		}
	}

	if err := m.conflictLocked(req.Provider, req.Date, req.Time, ""); err != nil {
		return Appointment{}, err
	}

	appt := Appointment{
		ID:        m.newID(),
		PatientID: req.PatientID,
		Date:      req.Date,
		Time:      req.Time,
		Location:  m.locationLocked(req.Provider),
		Provider:  req.Provider,
		Reason:    req.Reason,
		Status:    StatusConfirmed,
		Key:       req.Key,
		CreatedAt: m.now().UTC(),
	}
	m.appts = append(m.appts, appt)
	if req.Key != "" {
		m.keys[req.Key] = appt.ID
	}
	return appt, nil
}

func (m *MemoryStore) CancelByID(_ context.Context, id string) (Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 || !m.appts[i].Active() {
		return Appointment{}, &contractx.NotFoundError{What: "appointment", Key: id}
	}
	m.appts[i].Status = StatusCancelled
	return m.appts[i], nil
}

func (m *MemoryStore) Reschedule(_ context.Context, id, newDate, newClock string) (Appointment, error) {
	if _, err := ParseDate(newDate, time.Time{}); err != nil {
		return Appointment{}, err
	}
	if _, err := ParseClock(newClock); err != nil {
		return Appointment{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 || !m.appts[i].Active() {
		return Appointment{}, &contractx.NotFoundError{What: "appointment", Key: id}
	}
	if err := m.conflictLocked(m.appts[i].Provider, newDate, newClock, id); err != nil {
		return Appointment{}, err
	}
	m.appts[i].Date = newDate
	m.appts[i].Time = newClock
	return m.appts[i], nil
}

func (m *MemoryStore) AvailabilityFor(_ context.Context, provider, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(provider, date, ""), nil
}

func (m *MemoryStore) Providers(_ context.Context) ([]Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]Provider(nil), m.roster...)
	seen := make(map[string]struct{}, len(out))
	for _, p := range out {
		seen[strings.ToLower(p.Name)] = struct{}{}
	}
	for _, a := range m.appts {
		if _, ok := seen[strings.ToLower(a.Provider)]; ok {
			continue
		}
		seen[strings.ToLower(a.Provider)] = struct{}{}
		out = append(out, Provider{Name: a.Provider, Location: a.Location})
	}
	return out, nil
}

func (m *MemoryStore) ProvidersForPatient(_ context.Context, patientID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	seen := make(map[string]struct{})
	for _, a := range m.appts {
		if a.PatientID != patientID {
			continue
		}
		if _, ok := seen[a.Provider]; ok {
			continue
		}
		seen[a.Provider] = struct{}{}
		out = append(out, a.Provider)
	}
	return out, nil
}

func (m *MemoryStore) LocationFor(_ context.Context, provider string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locationLocked(provider), nil
}

// Len counts every record, cancelled included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appts)
}

/* ------------------------------ internals ------------------------------ */

func (m *MemoryStore) indexOf(id string) int {
	for i, a := range m.appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryStore) conflictLocked(provider, date, clock, ignoreID string) error {
	for _, a := range m.appts {
		if a.ID == ignoreID {
			continue
		}
		if sameSlot(a, provider, date, clock) {
			return &contractx.ConflictError{
				Provider:  provider,
				Date:      date,
				Time:      clock,
				OpenSlots: m.openLocked(provider, date, ignoreID),
			}
		}
	}
	return nil
}

func (m *MemoryStore) openLocked(provider, date, ignoreID string) []string {
	var booked []string
	for _, a := range m.appts {
		if a.ID == ignoreID || !a.Active() {
			continue
		}
		if strings.EqualFold(a.Provider, provider) && a.Date == date {
			booked = append(booked, a.Time)
		}
	}
	return m.grid.Open(booked)
}

// locationLocked inherits from the provider's earliest active booking, then
// the roster, then the clinic default.
func (m *MemoryStore) locationLocked(provider string) string {
	for _, a := range m.appts {
		if a.Active() && strings.EqualFold(a.Provider, provider) && a.Location != "" {
			return a.Location
		}
	}
	for _, p := range m.roster {
		if strings.EqualFold(p.Name, provider) && p.Location != "" {
			return p.Location
		}
	}
	return m.fallback
}

func singleMatch(matches []Appointment, date, clock string) (Appointment, error) {
	switch len(matches) {
	case 0:
		key := date
		if clock != "" {
			key += " " + clock
		}
		return Appointment{}, &contractx.NotFoundError{What: "appointment on", Key: key}
	case 1:
		return matches[0], nil
	default:
		sortAppointments(matches)
		return Appointment{}, &MultipleMatchError{Matches: matches}
	}
}
