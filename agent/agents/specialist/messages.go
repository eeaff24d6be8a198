package specialist

import (
	"fmt"
	"strings"

	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

const (
	msgNothingChanged = "Okay, I haven't made any changes. What would you like to change?"
	msgNoAppointments = "You don't have any upcoming appointments."
	confirmSuffix     = " Would you like me to confirm this? (yes/no)"
)

func addProposal(c *statex.Candidate) string {
	var b strings.Builder
	if c.FromPreferred {
		fmt.Fprintf(&b, "Since you didn't name a doctor, I picked your preferred provider, %s. ", c.Provider)
	}
	fmt.Fprintf(&b, "I can schedule the following appointment: %s at %s with %s at %s.", c.Date, c.Time, c.Provider, c.Location)
	b.WriteString(confirmSuffix)
	return b.String()
}

func addSucceeded(a scheduling.Appointment) string {
	return fmt.Sprintf("I successfully scheduled the following appointment: %s. Your appointment id is %s.", a.Summary(), a.ID)
}

func cancelProposal(a scheduling.Appointment) string {
	return fmt.Sprintf("I found this appointment: %s. Would you like me to cancel this appointment? (yes/no)", a.Summary())
}

func cancelSucceeded(a scheduling.Appointment) string {
	return fmt.Sprintf("I successfully cancelled the following appointment: %s.", a.Summary())
}

func rescheduleProposal(c *statex.Candidate) string {
	return fmt.Sprintf("I can reschedule your appointment with %s from %s at %s to %s at %s.",
		c.Provider, c.PreviousDate, c.PreviousTime, c.Date, c.Time) + confirmSuffix
}

func rescheduleSucceeded(a scheduling.Appointment) string {
	return fmt.Sprintf("I successfully rescheduled your appointment. It is now %s.", a.Summary())
}

// missingProviders asks for every missing field at once and lists who the
// caller can book with.
func missingProviders(missing, known, open []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I still need the following: %s.", strings.Join(missing, ", "))
	if len(known) > 0 {
		fmt.Fprintf(&b, " Doctors you've seen before: %s.", strings.Join(known, ", "))
	}
	if len(open) > 0 {
		if len(known) > 0 {
			b.WriteString(" If you'd like to see a different doctor, you can choose from:")
		} else {
			b.WriteString(" You can choose from:")
		}
		fmt.Fprintf(&b, " %s.", strings.Join(open, ", "))
	}
	return b.String()
}

func listing(appts []scheduling.Appointment) string {
	if len(appts) == 0 {
		return msgNoAppointments
	}
	var b strings.Builder
	b.WriteString("Here are your upcoming appointments:")
	for i, a := range appts {
		fmt.Fprintf(&b, "\n%d. [id %s] %s", i+1, a.ID, a.Summary())
	}
	return b.String()
}

func detail(a scheduling.Appointment) string {
	return fmt.Sprintf("Appointment %s: %s.", a.ID, a.Summary())
}
