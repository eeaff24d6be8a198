package identity

import (
	"fmt"
	"strings"
)

type Config struct {
	ClinicName        string `envconfig:"CLINIC_NAME" split_words:"true" default:"ACME Health"`
	SupportPhone      string `envconfig:"SUPPORT_PHONE" split_words:"true" default:"1-800-555-1234"`
	NewPatientFormURL string `envconfig:"NEW_PATIENT_FORM_URL" split_words:"true" default:"https://www.acme.com/new-patient-form"`
	MaxCorrections    int    `envconfig:"MAX_CORRECTIONS" split_words:"true" default:"3"`
	UrgencyThreshold  int    `envconfig:"URGENCY_THRESHOLD" split_words:"true" default:"8"`
}

var DefaultConfig = Config{
	ClinicName:        "ACME Health",
	SupportPhone:      "1-800-555-1234",
	NewPatientFormURL: "https://www.acme.com/new-patient-form",
	MaxCorrections:    3,
	UrgencyThreshold:  8,
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ClinicName) == "" {
		c.ClinicName = DefaultConfig.ClinicName
	}
	if strings.TrimSpace(c.SupportPhone) == "" {
		c.SupportPhone = DefaultConfig.SupportPhone
	}
	if strings.TrimSpace(c.NewPatientFormURL) == "" {
		c.NewPatientFormURL = DefaultConfig.NewPatientFormURL
	}
	if c.MaxCorrections <= 0 {
		c.MaxCorrections = DefaultConfig.MaxCorrections
	}
	if c.UrgencyThreshold <= 0 {
		c.UrgencyThreshold = DefaultConfig.UrgencyThreshold
	}
	return c
}

const UrgentMessage = "This sounds like a medical emergency. Please hang up and call 911 immediately."

const NewPatientQuestion = "Based on the information provided, it appears you are a new patient. " +
	"If you're a new patient, please say 'Yes'. In case you wish to correct your information, please say 'No' and correct your information."

// HandoffMessage points new patients at the intake form and existing ones at support.
func (c Config) HandoffMessage() string {
	return fmt.Sprintf("For new patients please go to this website: %s, fill out the form, and come back to me. "+
		"If you're an existing patient and had trouble verifying your identity, please call our support line at %s. "+
		"Our support line is open 24/7 and staffed by friendly representatives who will help you with your appointment. "+
		"Thank you for using %s clinic and have a great day!",
		c.NewPatientFormURL, c.SupportPhone, c.ClinicName)
}

func (c Config) AskMissing(missing []string, firstTime bool) string {
	list := joinList(missing)
	if firstTime {
		return fmt.Sprintf("Welcome to %s clinic. Before I can help with your appointments I need to verify your identity. "+
			"Please provide your %s.", c.ClinicName, list)
	}
	return fmt.Sprintf("Thanks. I still need your %s.", list)
}

func (c Config) AskCorrection() string {
	return "No problem. Please tell me the corrected information: your " +
		joinList([]string{"Full Name", "Date of Birth", "Last 4 digits of SSN or Phone Number"}) + "."
}

func (c Config) Greeting(firstName string) string {
	name := ""
	if firstName != "" {
		name = ", " + firstName
	}
	return fmt.Sprintf("Thank you%s, your identity is verified. I'm the %s Clinic Support Assistant. "+
		"I can book, cancel or reschedule appointments and show your upcoming appointments. How can I help you today?",
		name, c.ClinicName)
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
