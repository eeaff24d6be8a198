package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Appointment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Time      string    `json:"time"` // HH:MM, 24h
	Location  string    `json:"location"`
	Provider  string    `json:"provider"`
	Reason    string    `json:"reason"`
	Status    Status    `json:"status"`
	Key       string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (a Appointment) Active() bool { return a.Status == StatusConfirmed }

// Summary renders the appointment for the caller.
func (a Appointment) Summary() string {
	s := fmt.Sprintf("%s at %s with %s", a.Date, a.Time, a.Provider)
	if a.Location != "" {
		s += " at " + a.Location
	}
	if a.Reason != "" {
		s += " (" + a.Reason + ")"
	}
	return s
}

type NewAppointment struct {
	Key       string // idempotency key; repeated adds with the same key return the first record
	PatientID string
	Provider  string
	Date      string
	Time      string
	Reason    string
}

func (n NewAppointment) validate() error {
	var missing []string
	if strings.TrimSpace(n.PatientID) == "" {
		missing = append(missing, "patient")
	}
	if strings.TrimSpace(n.Provider) == "" {
		missing = append(missing, "provider")
	}
	if strings.TrimSpace(n.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(n.Time) == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return &contractx.ValidationError{Missing: missing}
	}
	if _, err := ParseDate(n.Date, time.Time{}); err != nil {
		return err
	}
	if _, err := ParseClock(n.Time); err != nil {
		return err
	}
	return nil
}

type Provider struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// SlotGrid generates bookable times for one day. EndHour is exclusive.
type SlotGrid struct {
	StartHour   int
	EndHour     int
	StepMinutes int
}

var DefaultGrid = SlotGrid{StartHour: 9, EndHour: 17, StepMinutes: 60}

func (g SlotGrid) normalized() SlotGrid {
	if g.StepMinutes <= 0 || g.EndHour <= g.StartHour {
		return DefaultGrid
	}
	return g
}

func (g SlotGrid) Slots() []string {
	g = g.normalized()
	var out []string
	for m := g.StartHour * 60; m < g.EndHour*60; m += g.StepMinutes {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

func (g SlotGrid) Contains(clock string) bool {
	for _, s := range g.Slots() {
		if s == clock {
			return true
		}
	}
	return false
}

// Open subtracts booked times from the grid.
func (g SlotGrid) Open(booked []string) []string {
	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}
	var out []string
	for _, s := range g.Slots() {
		if _, ok := taken[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

// MultipleMatchError is a find that hit more than one appointment.
type MultipleMatchError struct {
	Matches []Appointment
}

func (e *MultipleMatchError) Error() string {
	return fmt.Sprintf("%d appointments match", len(e.Matches))
}

func (e *MultipleMatchError) Unwrap() error { return contractx.ErrAmbiguous }

func sortAppointments(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}

func sameSlot(a Appointment, provider, date, clock string) bool {
	return a.Active() && strings.EqualFold(a.Provider, provider) && a.Date == date && a.Time == clock
}
