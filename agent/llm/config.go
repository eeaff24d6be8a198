package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	openrouterx "github.com/tanpawarit/clinic-scheduling-assistant/pkg/openrouter"
)

// Task names one structured reasoning call. Each task may run on its own
// model and temperature.
type Task string

const (
	TaskIdentity    Task = "identity"
	TaskIntent      Task = "intent"
	TaskDecision    Task = "decision"
	TaskAppointment Task = "appointment"
)

var Tasks = []Task{TaskIdentity, TaskIntent, TaskDecision, TaskAppointment}

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"800"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	IdentityModel          string  `envconfig:"IDENTITY_MODEL" split_words:"true"`
	IntentModel            string  `envconfig:"INTENT_MODEL" split_words:"true"`
	DecisionModel          string  `envconfig:"DECISION_MODEL" split_words:"true"`
	AppointmentModel       string  `envconfig:"APPOINTMENT_MODEL" split_words:"true"`
	IntentTemperature      float32 `envconfig:"INTENT_TEMPERATURE" split_words:"true" default:"-1"`
	AppointmentTemperature float32 `envconfig:"APPOINTMENT_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) OpenRouterFor(task Task) openrouterx.Config {
	override := ""
	temp := c.Temperature

	switch task {
	case TaskIdentity:
		override = c.IdentityModel
	case TaskIntent:
		override = c.IntentModel
		if c.IntentTemperature >= 0 {
			temp = c.IntentTemperature
		}
	case TaskDecision:
		override = c.DecisionModel
	case TaskAppointment:
		override = c.AppointmentModel
		if c.AppointmentTemperature >= 0 {
			temp = c.AppointmentTemperature
		}
	}

	maxCompletionToken := c.MaxCompletionToken
	base := openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
	return *base.WithModel(override)
}
