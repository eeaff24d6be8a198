package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

var (
	//go:embed template/identity.txt
	identityRaw string

	//go:embed template/intent.txt
	intentRaw string

	//go:embed template/new_patient.txt
	newPatientRaw string

	//go:embed template/confirm.txt
	confirmRaw string

	//go:embed template/appointment.txt
	appointmentRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Identity    string
	Intent      string
	NewPatient  string
	Confirm     string
	Appointment string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Identity:    strings.TrimSpace(identityRaw),
		Intent:      strings.TrimSpace(intentRaw),
		NewPatient:  strings.TrimSpace(newPatientRaw),
		Confirm:     strings.TrimSpace(confirmRaw),
		Appointment: strings.TrimSpace(appointmentRaw),
	}
}

// Validate rejects empty prompts and literal braces, which the chat
// template would read as variables.
func (p PromptSet) Validate() error {
	for name, text := range map[string]string{
		"identity":    p.Identity,
		"intent":      p.Intent,
		"new_patient": p.NewPatient,
		"confirm":     p.Confirm,
		"appointment": p.Appointment,
	} {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
		if strings.ContainsAny(text, "{}") {
			return fmt.Errorf("%w: %s prompt contains template braces", contractx.ErrValidation, name)
		}
	}
	return nil
}
