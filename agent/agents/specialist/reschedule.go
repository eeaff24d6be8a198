package specialist

import (
	"context"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
)

type rescheduleProtocol struct{ e *Engine }

func (rescheduleProtocol) event() contractx.EventType { return contractx.EventAppointmentRescheduled }

func (rescheduleProtocol) missing(d statex.Draft) []string {
	var out []string
	if d.AppointmentID == "" && d.Date == "" {
		out = append(out, fieldOriginal)
	}
	if d.NewDate == "" {
		out = append(out, "new date")
	}
	if d.NewTime == "" {
		out = append(out, "new time")
	}
	return out
}

func (p rescheduleProtocol) propose(ctx context.Context, sess *statex.Session, d statex.Draft) (*statex.Candidate, string, *toolx.Failure) {
	e := p.e
	if missing := p.missing(d); len(missing) > 0 {
		return nil, "", fail(&contractx.ValidationError{Missing: missing})
	}
	orig, f := e.locate(ctx, sess.Profile.ID, d.AppointmentID, d.Date, d.Time)
	if f != nil {
		return nil, "", f
	}
	date, err := e.futureDate("new date", d.NewDate)
	if err != nil {
		return nil, "", fail(err)
	}
	clock, err := e.bookableClock("new time", date, d.NewTime)
	if err != nil {
		return nil, "", fail(err)
	}
	if date == orig.Date && clock == orig.Time {
		return nil, "", fail(&contractx.ValidationError{
			Field:  "new time",
			Reason: "the appointment is already on " + date + " at " + clock,
		})
	}
	if f := e.ensureOpen(ctx, orig.Provider, date, clock); f != nil {
		return nil, "", f
	}

	c := &statex.Candidate{
		ID:            e.newID(),
		Action:        statex.ActionReschedule,
		AppointmentID: orig.ID,
		PatientID:     orig.PatientID,
		Provider:      orig.Provider,
		Date:          date,
		Time:          clock,
		Location:      orig.Location,
		Reason:        orig.Reason,
		PreviousDate:  orig.Date,
		PreviousTime:  orig.Time,
	}
	return c, rescheduleProposal(c), nil
}

func (p rescheduleProtocol) commit(ctx context.Context, c *statex.Candidate) (scheduling.Appointment, *toolx.Failure) {
	return result[scheduling.Appointment](p.e.gateway.Reschedule(ctx, c.AppointmentID, c.Date, c.Time))
}

func (rescheduleProtocol) succeeded(appt scheduling.Appointment, _ *statex.Candidate) string {
	return rescheduleSucceeded(appt)
}
