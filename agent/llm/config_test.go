package llm

import (
	"errors"
	"testing"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
)

func TestOpenRouterForOverrides(t *testing.T) {
	t.Parallel()

	cfg := Config{
		APIKey:                 " key ",
		Model:                  "base/model",
		MaxCompletionToken:     500,
		Temperature:            0.2,
		IntentModel:            "fast/model",
		IntentTemperature:      0,
		AppointmentTemperature: -1,
	}

	intent := cfg.OpenRouterFor(TaskIntent)
	if intent.Model != "fast/model" || intent.Temperature != 0 || intent.APIKey != "key" {
		t.Fatalf("OpenRouterFor(intent) = %#v", intent)
	}
	appt := cfg.OpenRouterFor(TaskAppointment)
	if appt.Model != "base/model" || appt.Temperature != 0.2 {
		t.Fatalf("OpenRouterFor(appointment) = %#v", appt)
	}
	if appt.MaxCompletionToken == nil || *appt.MaxCompletionToken != 500 {
		t.Fatalf("max tokens = %v", appt.MaxCompletionToken)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := (Config{Model: "m"}).Validate(); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("Validate() error = %v, want validation", err)
	}
	if err := (Config{APIKey: "k", Model: "m"}).Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
