package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/resilience"
)

const (
	ToolListAppointments      = "appointments.list"
	ToolGetAppointment        = "appointments.get"
	ToolFindAppointment       = "appointments.find"
	ToolAvailability          = "appointments.availability"
	ToolProviders             = "providers.list"
	ToolProvidersForPatient   = "providers.for_patient"
	ToolProviderLocation      = "providers.location"
	ToolBookAppointment       = "appointments.book"
	ToolCancelAppointment     = "appointments.cancel"
	ToolRescheduleAppointment = "appointments.reschedule"
)

var actions = map[string]string{
	ToolListAppointments:      "list appointments",
	ToolGetAppointment:        "look up the appointment",
	ToolFindAppointment:       "find the appointment",
	ToolAvailability:          "check availability",
	ToolProviders:             "list providers",
	ToolProvidersForPatient:   "list providers",
	ToolProviderLocation:      "look up the provider location",
	ToolBookAppointment:       "book the appointment",
	ToolCancelAppointment:     "cancel the appointment",
	ToolRescheduleAppointment: "reschedule the appointment",
}

// Gateway is the only path from the flows to the scheduling store. Every call
// returns an Outcome; store errors and panics never cross it.
type Gateway struct {
	store   scheduling.Store
	timeout time.Duration
	policy  resilience.Policy
}

type Option func(*Gateway)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRetryPolicy sets the policy for idempotent calls. AttemptTimeout and
// IsRetryable are always overridden by the gateway.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(g *Gateway) { g.policy = p }
}

func NewGateway(store scheduling.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:   store,
		timeout: 5 * time.Second,
		policy: resilience.Policy{
			MaxAttempts: 3,
			BaseDelay:   50 * time.Millisecond,
			MaxDelay:    500 * time.Millisecond,
			Jitter:      0.2,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *Gateway) ListAppointments(ctx context.Context, patientID string) Outcome {
	return invoke(ctx, g, ToolListAppointments, true, func(ctx context.Context) ([]scheduling.Appointment, error) {
		return g.store.GetByPatient(ctx, patientID)
	})
}

// GetAppointment returns one of the patient's active appointments by id.
func (g *Gateway) GetAppointment(ctx context.Context, patientID, id string) Outcome {
	return invoke(ctx, g, ToolGetAppointment, true, func(ctx context.Context) (scheduling.Appointment, error) {
		appts, err := g.store.GetByPatient(ctx, patientID)
		if err != nil {
			return scheduling.Appointment{}, err
		}
		for _, a := range appts {
			if a.ID == id {
				return a, nil
			}
		}
		return scheduling.Appointment{}, &contractx.NotFoundError{What: "appointment", Key: id}
	})
}

func (g *Gateway) FindAppointment(ctx context.Context, patientID, date, clock string) Outcome {
	return invoke(ctx, g, ToolFindAppointment, true, func(ctx context.Context) (scheduling.Appointment, error) {
		return g.store.FindByPatientAndDate(ctx, patientID, date, clock)
	})
}

func (g *Gateway) Availability(ctx context.Context, provider, date string) Outcome {
	return invoke(ctx, g, ToolAvailability, true, func(ctx context.Context) ([]string, error) {
		return g.store.AvailabilityFor(ctx, provider, date)
	})
}

func (g *Gateway) Providers(ctx context.Context) Outcome {
	return invoke(ctx, g, ToolProviders, true, func(ctx context.Context) ([]scheduling.Provider, error) {
		return g.store.Providers(ctx)
	})
}

func (g *Gateway) ProvidersForPatient(ctx context.Context, patientID string) Outcome {
	return invoke(ctx, g, ToolProvidersForPatient, true, func(ctx context.Context) ([]string, error) {
		return g.store.ProvidersForPatient(ctx, patientID)
	})
}

func (g *Gateway) LocationFor(ctx context.Context, provider string) Outcome {
	return invoke(ctx, g, ToolProviderLocation, true, func(ctx context.Context) (string, error) {
		return g.store.LocationFor(ctx, provider)
	})
}

// Book retries only when the request carries an idempotency key.
func (g *Gateway) Book(ctx context.Context, req scheduling.NewAppointment) Outcome {
	return invoke(ctx, g, ToolBookAppointment, req.Key != "", func(ctx context.Context) (scheduling.Appointment, error) {
		return g.store.Add(ctx, req)
	})
}

func (g *Gateway) Cancel(ctx context.Context, id string) Outcome {
	return invoke(ctx, g, ToolCancelAppointment, false, func(ctx context.Context) (scheduling.Appointment, error) {
		return g.store.CancelByID(ctx, id)
	})
}

func (g *Gateway) Reschedule(ctx context.Context, id, newDate, newClock string) Outcome {
	return invoke(ctx, g, ToolRescheduleAppointment, false, func(ctx context.Context) (scheduling.Appointment, error) {
		return g.store.Reschedule(ctx, id, newDate, newClock)
	})
}

/* ------------------------------ internals ------------------------------ */

func invoke[T any](ctx context.Context, g *Gateway, tool string, retry bool, fn func(context.Context) (T, error)) Outcome {
	policy := g.policy
	policy.AttemptTimeout = g.timeout
	policy.IsRetryable = retryable
	if !retry {
		policy.MaxAttempts = 1
	}

	start := time.Now()
	out, err := resilience.Do(ctx, policy, func(ctx context.Context) (T, error) {
		return guarded(ctx, tool, fn)
	})
	if err != nil {
		failure := NewFailure(actions[tool], err)
		ev := log.Debug()
		if failure.Kind == contractx.KindInternal {
			ev = log.Error()
		}
		ev.Err(err).
			Str("tool", tool).
			Str("kind", string(failure.Kind)).
			Dur("elapsed", time.Since(start)).
			Msg("tool call failed")
		return Outcome{Tool: tool, Error: failure}
	}
	return Outcome{Tool: tool, OK: true, Payload: out}
}

func guarded[T any](ctx context.Context, tool string, fn func(context.Context) (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", tool).Interface("panic", r).Msg("tool panicked")
			err = resilience.Permanent(fmt.Errorf("%w: %s panicked: %v", contractx.ErrInternal, tool, r))
		}
	}()
	return fn(ctx)
}

// retryable limits retries to infrastructure failures. Domain outcomes such
// as conflicts are answers, not faults.
func retryable(err error) bool {
	return resilience.DefaultIsRetryable(err) && contractx.KindOf(err) == contractx.KindInternal
}
