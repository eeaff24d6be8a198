package reasoner

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

type identityOutput struct {
	Fields        statex.IdentityFields `mapstructure:",squash"`
	Urgency       int                   `mapstructure:"urgency"`
	UrgencyReason string                `mapstructure:"urgency_reason"`
}

type intentOutput struct {
	Intent        string  `mapstructure:"intent"`
	Confidence    float64 `mapstructure:"confidence"`
	AppointmentID string  `mapstructure:"appointment_id"`
	Urgency       int     `mapstructure:"urgency"`
	UrgencyReason string  `mapstructure:"urgency_reason"`
}

type decisionOutput struct {
	Decision *bool `mapstructure:"decision"`
}

type appointmentOutput struct {
	Draft       statex.Draft `mapstructure:",squash"`
	Leave       bool         `mapstructure:"leave"`
	LeaveReason string       `mapstructure:"leave_reason"`
}

// decode maps raw model JSON onto out. Numbers and strings convert freely and
// keys match regardless of case, underscores or dashes.
func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		MatchName:        func(mapKey, fieldName string) bool { return normalizeKey(mapKey) == normalizeKey(fieldName) },
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	return dec.Decode(raw)
}

func normalizeKey(s string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(s))
}

// parseIntent accepts both bare labels and the "add_appointment" style.
func parseIntent(label string) (statex.IntentKind, bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "_appointments"), "_appointment")
	switch k := statex.IntentKind(s); k {
	case statex.IntentAdd, statex.IntentCancel, statex.IntentReschedule, statex.IntentList, statex.IntentOther:
		return k, true
	default:
		return "", false
	}
}

func clampUrgency(v int) int {
	switch {
	case v < 1:
		return 1
	case v > 10:
		return 10
	default:
		return v
	}
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
