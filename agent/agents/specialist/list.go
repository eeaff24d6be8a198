package specialist

import (
	"context"

	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

// List answers inline without touching the delegation stack. A non-empty
// appointmentID returns that appointment's details.
func (e *Engine) List(ctx context.Context, sess *statex.Session, appointmentID string) string {
	if sess == nil || sess.Profile == nil {
		return msgNoAppointments
	}
	patientID := sess.Profile.ID
	if appointmentID != "" {
		appt, f := result[scheduling.Appointment](e.gateway.GetAppointment(ctx, patientID, appointmentID))
		if f != nil {
			return f.Message
		}
		return detail(appt)
	}
	appts, f := result[[]scheduling.Appointment](e.gateway.ListAppointments(ctx, patientID))
	if f != nil {
		return f.Message
	}
	return listing(appts)
}
