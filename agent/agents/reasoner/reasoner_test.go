package reasoner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	promptx "github.com/tanpawarit/clinic-scheduling-assistant/agent/prompt"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/resilience"
)

type fakeChatModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return nil, errors.New("no fake response left")
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return schema.AssistantMessage(content, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeChatModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func newTestReasoner(t *testing.T, fake *fakeChatModel) *Reasoner {
	t.Helper()
	r, err := New(context.Background(), Models{Identity: fake, Intent: fake, Decision: fake, Appointment: fake},
		promptx.LoadPromptSet(),
		WithPolicy(resilience.Policy{
			MaxAttempts:    2,
			AttemptTimeout: time.Second,
			Sleep:          func(context.Context, time.Duration) error { return nil },
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestExtractIdentityDecodesLooseJSON(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{
		`{"Name":"John Doe","DOB":"1960-01-01","ssn-last4":1111,"phone":"","urgency":"12","urgencyReason":" chest pain "}`,
	}}
	r := newTestReasoner(t, fake)

	out, err := r.ExtractIdentity(context.Background(), contractx.IdentityRequest{Utterance: "John Doe 1/1/1960 ssn 1111"})
	if err != nil {
		t.Fatalf("ExtractIdentity() error = %v", err)
	}
	want := statex.IdentityFields{Name: "John Doe", DOB: "1960-01-01", SSNLast4: "1111"}
	if out.Fields != want {
		t.Fatalf("fields = %#v, want %#v", out.Fields, want)
	}
	if out.Urgency != 10 || out.UrgencyReason != "chest pain" {
		t.Fatalf("urgency = %d %q", out.Urgency, out.UrgencyReason)
	}

	user := fake.inputs[0][len(fake.inputs[0])-1]
	if user.Role != schema.User || user.Content == "" {
		t.Fatalf("user message = %#v, want JSON payload", user)
	}
}

func TestClassifyIntentNormalizesLabels(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{
		`{"intent":"list_appointments","confidence":1.4,"appointment_id":" 3 ","urgency":0}`,
	}}
	r := newTestReasoner(t, fake)

	out, err := r.ClassifyIntent(context.Background(), contractx.IntentRequest{Utterance: "show appointment 3"})
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if out.Kind != statex.IntentList || out.Confidence != 1 || out.AppointmentID != "3" || out.Urgency != 1 {
		t.Fatalf("ClassifyIntent() = %#v", out)
	}
}

func TestClassifyIntentUnknownLabelIsSchemaViolation(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{`{"intent":"dance"}`, `{"intent":"sing"}`}}
	r := newTestReasoner(t, fake)

	_, err := r.ClassifyIntent(context.Background(), contractx.IntentRequest{Utterance: "?"})
	if !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("ClassifyIntent() error = %v, want schema violation", err)
	}
	if fake.calls != 2 {
		t.Fatalf("calls = %d, want one retry", fake.calls)
	}
}

func TestDecideConfirmRequiresDecision(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{`{"answer":"yes"}`, `{"decision":"true"}`}}
	r := newTestReasoner(t, fake)

	ok, err := r.DecideConfirm(context.Background(), contractx.DecisionRequest{Utterance: "yes", Question: "Confirm?"})
	if err != nil {
		t.Fatalf("DecideConfirm() error = %v", err)
	}
	if !ok {
		t.Fatal("DecideConfirm() = false, want true after retry")
	}
}

func TestDecideNewPatient(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{`{"decision":false}`}}
	r := newTestReasoner(t, fake)

	ok, err := r.DecideNewPatient(context.Background(), contractx.DecisionRequest{Utterance: "no, I typed my birthday wrong"})
	if err != nil || ok {
		t.Fatalf("DecideNewPatient() = %v, %v", ok, err)
	}
}

func TestExtractAppointment(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{
		`{"appointmentId":"","provider":" Dr. Jim Beam ","date":"2024-07-12","time":"14:00","newDate":"","leave":false}`,
		`{"leave":"true","leave_reason":"wants to list appointments"}`,
	}}
	r := newTestReasoner(t, fake)
	ctx := context.Background()

	out, err := r.ExtractAppointment(ctx, contractx.AppointmentRequest{Flow: statex.FlowAdd, Utterance: "Jim Beam July 12 2pm"})
	if err != nil {
		t.Fatalf("ExtractAppointment() error = %v", err)
	}
	if out.Draft.Provider != "Dr. Jim Beam" || out.Draft.Date != "2024-07-12" || out.Draft.Time != "14:00" || out.Leave {
		t.Fatalf("ExtractAppointment() = %#v", out)
	}

	out, err = r.ExtractAppointment(ctx, contractx.AppointmentRequest{Flow: statex.FlowAdd, Utterance: "never mind"})
	if err != nil {
		t.Fatalf("ExtractAppointment() error = %v", err)
	}
	if !out.Leave || out.LeaveReason != "wants to list appointments" {
		t.Fatalf("ExtractAppointment() = %#v, want leave", out)
	}
}

func TestModelErrorIsRetriedThenWrapped(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("upstream 503")}
	r := newTestReasoner(t, fake)

	_, err := r.ExtractIdentity(context.Background(), contractx.IdentityRequest{Utterance: "hi"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("ExtractIdentity() error = %v, want model invoke", err)
	}
	if fake.calls != 2 {
		t.Fatalf("calls = %d, want 2", fake.calls)
	}
}

func TestUnparseableResponseRecovers(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []string{"not json", `{"intent":"add","confidence":0.9}`}}
	r := newTestReasoner(t, fake)

	out, err := r.ClassifyIntent(context.Background(), contractx.IntentRequest{Utterance: "book"})
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if out.Kind != statex.IntentAdd {
		t.Fatalf("Kind = %q", out.Kind)
	}
}

func TestNewRejectsMissingModel(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Models{}, promptx.LoadPromptSet())
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("New() error = %v, want validation", err)
	}
}
