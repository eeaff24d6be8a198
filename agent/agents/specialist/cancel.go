package specialist

import (
	"context"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
)

const fieldOriginal = "appointment id or date"

type cancelProtocol struct{ e *Engine }

func (cancelProtocol) event() contractx.EventType { return contractx.EventAppointmentCancelled }

func (cancelProtocol) missing(d statex.Draft) []string {
	if d.AppointmentID == "" && d.Date == "" {
		return []string{fieldOriginal}
	}
	return nil
}

func (p cancelProtocol) propose(ctx context.Context, sess *statex.Session, d statex.Draft) (*statex.Candidate, string, *toolx.Failure) {
	if missing := p.missing(d); len(missing) > 0 {
		return nil, "", fail(&contractx.ValidationError{Missing: missing})
	}
	appt, f := p.e.locate(ctx, sess.Profile.ID, d.AppointmentID, d.Date, d.Time)
	if f != nil {
		return nil, "", f
	}
	c := &statex.Candidate{
		ID:            p.e.newID(),
		Action:        statex.ActionCancel,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		Provider:      appt.Provider,
		Date:          appt.Date,
		Time:          appt.Time,
		Location:      appt.Location,
		Reason:        appt.Reason,
	}
	return c, cancelProposal(appt), nil
}

func (p cancelProtocol) commit(ctx context.Context, c *statex.Candidate) (scheduling.Appointment, *toolx.Failure) {
	return result[scheduling.Appointment](p.e.gateway.Cancel(ctx, c.AppointmentID))
}

func (cancelProtocol) succeeded(appt scheduling.Appointment, _ *statex.Candidate) string {
	return cancelSucceeded(appt)
}
