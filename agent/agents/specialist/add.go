package specialist

import (
	"context"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/scheduling"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	toolx "github.com/tanpawarit/clinic-scheduling-assistant/agent/tool"
)

const defaultReason = "Consultation"

type addProtocol struct{ e *Engine }

func (addProtocol) event() contractx.EventType { return contractx.EventAppointmentBooked }

func (addProtocol) missing(d statex.Draft) []string {
	var out []string
	if d.Provider == "" {
		out = append(out, "provider")
	}
	if d.Date == "" {
		out = append(out, "date")
	}
	if d.Time == "" {
		out = append(out, "time")
	}
	return out
}

func (p addProtocol) propose(ctx context.Context, sess *statex.Session, d statex.Draft) (*statex.Candidate, string, *toolx.Failure) {
	e := p.e
	patientID := sess.Profile.ID

	provider, fromPreferred := d.Provider, false
	if provider == "" {
		provider, fromPreferred = p.preferred(ctx, patientID)
	}

	known, open, f := p.providerOptions(ctx, patientID)
	if f != nil {
		return nil, "", f
	}

	var missing []string
	if provider == "" {
		missing = append(missing, "provider")
	}
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		err := &contractx.ValidationError{Missing: missing}
		f := fail(err)
		if provider == "" {
			f.Message = missingProviders(missing, known, open)
			f.Options = append(append([]string(nil), known...), open...)
		}
		return nil, "", f
	}

	matched, err := scheduling.MatchProvider(provider, append(append([]string(nil), known...), open...))
	if err != nil {
		return nil, "", fail(err)
	}
	date, err := e.futureDate("date", d.Date)
	if err != nil {
		return nil, "", fail(err)
	}
	clock, err := e.bookableClock("time", date, d.Time)
	if err != nil {
		return nil, "", fail(err)
	}
	if f := e.ensureOpen(ctx, matched, date, clock); f != nil {
		return nil, "", f
	}
	location, f := result[string](e.gateway.LocationFor(ctx, matched))
	if f != nil {
		return nil, "", f
	}

	reason := d.Reason
	if reason == "" {
		reason = defaultReason
	}
	c := &statex.Candidate{
		ID:            e.newID(),
		Action:        statex.ActionAdd,
		PatientID:     patientID,
		Provider:      matched,
		Date:          date,
		Time:          clock,
		Location:      location,
		Reason:        reason,
		FromPreferred: fromPreferred,
	}
	return c, addProposal(c), nil
}

func (p addProtocol) commit(ctx context.Context, c *statex.Candidate) (scheduling.Appointment, *toolx.Failure) {
	e := p.e
	appt, f := result[scheduling.Appointment](e.gateway.Book(ctx, scheduling.NewAppointment{
		Key:       c.ID,
		PatientID: c.PatientID,
		Provider:  c.Provider,
		Date:      c.Date,
		Time:      c.Time,
		Reason:    c.Reason,
	}))
	if f != nil {
		return appt, f
	}
	if e.prefs != nil {
		if err := e.prefs.SetPreferred(ctx, c.PatientID, appt.Provider); err != nil {
			log.Warn().Err(err).Str("patient_id", c.PatientID).Msg("failed to store preferred provider")
		}
	}
	return appt, nil
}

func (addProtocol) succeeded(appt scheduling.Appointment, _ *statex.Candidate) string {
	return addSucceeded(appt)
}

func (p addProtocol) preferred(ctx context.Context, patientID string) (string, bool) {
	if p.e.prefs == nil {
		return "", false
	}
	name, ok, err := p.e.prefs.Preferred(ctx, patientID)
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("failed to read preferred provider")
		return "", false
	}
	return name, ok && name != ""
}

// providerOptions returns the providers the patient has seen and the rest
// of the open roster.
func (p addProtocol) providerOptions(ctx context.Context, patientID string) ([]string, []string, *toolx.Failure) {
	known, f := result[[]string](p.e.gateway.ProvidersForPatient(ctx, patientID))
	if f != nil {
		return nil, nil, f
	}
	roster, f := result[[]scheduling.Provider](p.e.gateway.Providers(ctx))
	if f != nil {
		return nil, nil, f
	}
	seen := make(map[string]struct{}, len(known))
	for _, name := range known {
		seen[scheduling.NormalizeName(name)] = struct{}{}
	}
	var open []string
	for _, pr := range roster {
		key := scheduling.NormalizeName(pr.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		open = append(open, pr.Name)
	}
	return known, open, nil
}
