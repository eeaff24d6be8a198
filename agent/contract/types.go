package contract

import (
	"time"

	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

type IdentityRequest struct {
	Utterance string                `json:"utterance"`
	Known     statex.IdentityFields `json:"known"`
	Missing   []string              `json:"missing,omitempty"`
	Recent    []statex.Message      `json:"recent,omitempty"`
}

type IdentityExtraction struct {
	Fields        statex.IdentityFields `json:"fields"`
	Urgency       int                   `json:"urgency"`
	UrgencyReason string                `json:"urgency_reason,omitempty"`
}

type IntentRequest struct {
	Utterance string           `json:"utterance"`
	Recent    []statex.Message `json:"recent,omitempty"`
}

type IntentResult struct {
	Kind          statex.IntentKind `json:"intent"`
	Confidence    float64           `json:"confidence"`
	AppointmentID string            `json:"appointment_id,omitempty"`
	Urgency       int               `json:"urgency"`
	UrgencyReason string            `json:"urgency_reason,omitempty"`
}

type DecisionRequest struct {
	Utterance string `json:"utterance"`
	Question  string `json:"question"`
}

type AppointmentRequest struct {
	Flow      statex.FlowName  `json:"flow"`
	Utterance string           `json:"utterance"`
	Draft     statex.Draft     `json:"draft"`
	Missing   []string         `json:"missing,omitempty"`
	Today     string           `json:"today"`
	Recent    []statex.Message `json:"recent,omitempty"`
}

// AppointmentExtraction is the flow-side parse of one utterance. Leave is the
// caller asking to abandon the current flow.
type AppointmentExtraction struct {
	Draft       statex.Draft `json:"draft"`
	Leave       bool         `json:"leave"`
	LeaveReason string       `json:"leave_reason,omitempty"`
}

type EventType string

const (
	EventAppointmentBooked      EventType = "appointment.booked"
	EventAppointmentCancelled   EventType = "appointment.cancelled"
	EventAppointmentRescheduled EventType = "appointment.rescheduled"
)

type Event struct {
	Type          EventType `json:"type"`
	ThreadID      string    `json:"thread_id"`
	PatientID     string    `json:"patient_id"`
	AppointmentID string    `json:"appointment_id"`
	Provider      string    `json:"provider"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	At            time.Time `json:"at"`
}
