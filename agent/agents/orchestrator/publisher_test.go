package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/tanpawarit/clinic-scheduling-assistant/pkg/qstash"
)

func TestQStashPublisherDeduplicatesByChange(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		dedups []string
		paths  []string
		bodies []contractx.Event
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev contractx.Event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		mu.Lock()
		dedups = append(dedups, r.Header.Get("Upstash-Deduplication-Id"))
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer srv.Close()

	client, err := qstash.NewClient(qstash.Config{URL: srv.URL, Token: "tok", Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	pub, err := NewQStashPublisher(client, "clinic-events")
	if err != nil {
		t.Fatalf("NewQStashPublisher() error = %v", err)
	}

	ev := contractx.Event{
		Type:          contractx.EventAppointmentRescheduled,
		ThreadID:      "thread-1",
		AppointmentID: "2",
		Date:          "2024-07-12",
		Time:          "14:00",
	}
	if err := pub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	ev.Time = "15:00"
	if err := pub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/v2/publish/clinic-events" {
		t.Fatalf("paths = %v", paths)
	}
	if dedups[0] != "2:appointment.rescheduled:2024-07-12T14:00" || dedups[0] == dedups[1] {
		t.Fatalf("dedup ids = %v, want one per change", dedups)
	}
	if bodies[0].ThreadID != "thread-1" || bodies[1].Time != "15:00" {
		t.Fatalf("bodies = %#v", bodies)
	}
}

func TestNewQStashPublisherRequiresDestination(t *testing.T) {
	t.Parallel()

	client, err := qstash.NewClient(qstash.Config{URL: "https://qstash.example", Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := NewQStashPublisher(client, "  "); err == nil {
		t.Fatal("NewQStashPublisher() error = nil, want destination error")
	}
	if _, err := NewQStashPublisher(nil, "clinic-events"); err == nil {
		t.Fatal("NewQStashPublisher() error = nil, want client error")
	}
}
