// Package reasoner implements contract.Reasoner on structured LLM graphs.
package reasoner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	llmx "github.com/tanpawarit/clinic-scheduling-assistant/agent/llm"
	promptx "github.com/tanpawarit/clinic-scheduling-assistant/agent/prompt"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/redact"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/resilience"
)

var _ contractx.Reasoner = (*Reasoner)(nil)

// Models assigns a chat model per task. Decision serves both yes/no
// questions.
type Models struct {
	Identity    einomodel.BaseChatModel
	Intent      einomodel.BaseChatModel
	Decision    einomodel.BaseChatModel
	Appointment einomodel.BaseChatModel
}

type Option func(*Reasoner)

func WithPolicy(p resilience.Policy) Option {
	return func(r *Reasoner) { r.policy = p }
}

type Reasoner struct {
	identity    structuredRunner
	intent      structuredRunner
	newPatient  structuredRunner
	confirm     structuredRunner
	appointment structuredRunner
	policy      resilience.Policy
}

func New(ctx context.Context, models Models, prompts promptx.PromptSet, opts ...Option) (*Reasoner, error) {
	if models.Identity == nil || models.Intent == nil || models.Decision == nil || models.Appointment == nil {
		return nil, fmt.Errorf("%w: every reasoner task needs a chat model", contractx.ErrValidation)
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	r := &Reasoner{
		policy: resilience.Policy{
			MaxAttempts:    3,
			BaseDelay:      200 * time.Millisecond,
			MaxDelay:       2 * time.Second,
			Jitter:         0.2,
			AttemptTimeout: 20 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	specs := []struct {
		dst    *structuredRunner
		model  einomodel.BaseChatModel
		prompt string
		name   string
	}{
		{&r.identity, models.Identity, prompts.Identity, "reasoner.identity"},
		{&r.intent, models.Intent, prompts.Intent, "reasoner.intent"},
		{&r.newPatient, models.Decision, prompts.NewPatient, "reasoner.new_patient"},
		{&r.confirm, models.Decision, prompts.Confirm, "reasoner.confirm"},
		{&r.appointment, models.Appointment, prompts.Appointment, "reasoner.appointment"},
	}
	for _, s := range specs {
		runner, err := compileStructuredLLMGraph(ctx, s.model, s.prompt, s.name)
		if err != nil {
			return nil, fmt.Errorf("%w: compile %s: %v", contractx.ErrModelInvoke, s.name, err)
		}
		*s.dst = runner
	}
	return r, nil
}

// NewFromConfig builds one OpenRouter chat model per task.
func NewFromConfig(ctx context.Context, cfg llmx.Config, prompts promptx.PromptSet, opts ...Option) (*Reasoner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	built := make(map[llmx.Task]einomodel.BaseChatModel, len(llmx.Tasks))
	for _, task := range llmx.Tasks {
		oc := cfg.OpenRouterFor(task)
		m, err := oc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: build %s model: %v", contractx.ErrModelInvoke, task, err)
		}
		built[task] = m
	}
	return New(ctx, Models{
		Identity:    built[llmx.TaskIdentity],
		Intent:      built[llmx.TaskIntent],
		Decision:    built[llmx.TaskDecision],
		Appointment: built[llmx.TaskAppointment],
	}, prompts, opts...)
}

func (r *Reasoner) ExtractIdentity(ctx context.Context, req contractx.IdentityRequest) (contractx.IdentityExtraction, error) {
	out, err := invoke(ctx, r, r.identity, "identity", req.Utterance, req, noCheck[identityOutput])
	if err != nil {
		return contractx.IdentityExtraction{}, err
	}
	return contractx.IdentityExtraction{
		Fields:        out.Fields,
		Urgency:       clampUrgency(out.Urgency),
		UrgencyReason: strings.TrimSpace(out.UrgencyReason),
	}, nil
}

func (r *Reasoner) ClassifyIntent(ctx context.Context, req contractx.IntentRequest) (contractx.IntentResult, error) {
	out, err := invoke(ctx, r, r.intent, "intent", req.Utterance, req, func(o *intentOutput) error {
		if _, ok := parseIntent(o.Intent); !ok {
			return fmt.Errorf("unsupported intent=%q", o.Intent)
		}
		return nil
	})
	if err != nil {
		return contractx.IntentResult{}, err
	}
	k, _ := parseIntent(out.Intent)
	return contractx.IntentResult{
		Kind:          k,
		Confidence:    clampConfidence(out.Confidence),
		AppointmentID: strings.TrimSpace(out.AppointmentID),
		Urgency:       clampUrgency(out.Urgency),
		UrgencyReason: strings.TrimSpace(out.UrgencyReason),
	}, nil
}

func (r *Reasoner) DecideNewPatient(ctx context.Context, req contractx.DecisionRequest) (bool, error) {
	return r.decide(ctx, r.newPatient, "new_patient", req)
}

func (r *Reasoner) DecideConfirm(ctx context.Context, req contractx.DecisionRequest) (bool, error) {
	return r.decide(ctx, r.confirm, "confirm", req)
}

func (r *Reasoner) ExtractAppointment(ctx context.Context, req contractx.AppointmentRequest) (contractx.AppointmentExtraction, error) {
	out, err := invoke(ctx, r, r.appointment, "appointment", req.Utterance, req, noCheck[appointmentOutput])
	if err != nil {
		return contractx.AppointmentExtraction{}, err
	}
	return contractx.AppointmentExtraction{
		Draft:       statex.Draft{}.Merge(out.Draft),
		Leave:       out.Leave,
		LeaveReason: strings.TrimSpace(out.LeaveReason),
	}, nil
}

func (r *Reasoner) decide(ctx context.Context, runner structuredRunner, name string, req contractx.DecisionRequest) (bool, error) {
	out, err := invoke(ctx, r, runner, name, req.Utterance, req, func(o *decisionOutput) error {
		if o.Decision == nil {
			return fmt.Errorf("decision is required")
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return *out.Decision, nil
}

// invoke runs one structured call under the retry policy. check rejects
// decoded output that does not fit the task.
func invoke[T any](
	ctx context.Context,
	r *Reasoner,
	runner structuredRunner,
	name string,
	utterance string,
	payload any,
	check func(*T) error,
) (T, error) {
	var zero T
	input, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("%w: marshal %s payload: %v", contractx.ErrValidation, name, err)
	}

	log.Debug().Str("task", name).Str("utterance", redact.Text(utterance)).Msg("reasoner call")

	out, err := resilience.Do(ctx, r.policy, func(ctx context.Context) (T, error) {
		raw, err := runner.Invoke(ctx, map[string]any{"input": string(input)})
		if err != nil {
			return zero, fmt.Errorf("%w: %s invoke: %v", contractx.ErrModelInvoke, name, err)
		}
		var out T
		if err := decode(raw, &out); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", contractx.ErrSchemaViolation, name, err)
		}
		if err := check(&out); err != nil {
			return zero, fmt.Errorf("%w: %s: %v", contractx.ErrSchemaViolation, name, err)
		}
		return out, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("task", name).Msg("reasoner call failed")
		return zero, err
	}
	return out, nil
}

func noCheck[T any](*T) error { return nil }
