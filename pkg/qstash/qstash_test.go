package qstash

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPublishJSON(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotDedup, gotDelay string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		gotDelay = r.Header.Get("Upstash-Delay")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"msg_1"}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{URL: srv.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	res, err := client.PublishJSON(context.Background(), "clinic-events", map[string]any{"type": "appointment.booked"},
		PublishOptions{DeduplicationID: "appt-1", Delay: 90 * time.Second})
	if err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	if res.MessageID != "msg_1" {
		t.Fatalf("message id = %q", res.MessageID)
	}
	if gotPath != "/v2/publish/clinic-events" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" || gotDedup != "appt-1" || gotDelay != "90s" {
		t.Fatalf("headers auth=%q dedup=%q delay=%q", gotAuth, gotDedup, gotDelay)
	}
	if gotBody["type"] != "appointment.booked" {
		t.Fatalf("body = %#v", gotBody)
	}
}

func TestPublishJSONErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := MustNew(Config{URL: srv.URL, Token: "tok"})
	_, err := client.PublishJSON(context.Background(), "dest", struct{}{}, PublishOptions{})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("PublishJSON() error = %v, want status 429", err)
	}
}

func TestNewClientValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "", Token: "x"}); err == nil {
		t.Fatal("expected url error")
	}
	if _, err := NewClient(Config{URL: "https://qstash.upstash.io", Token: " "}); err == nil {
		t.Fatal("expected token error")
	}
	c, err := NewClient(Config{URL: "https://qstash.upstash.io", Token: "x"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := c.PublishJSON(context.Background(), " ", nil, PublishOptions{}); err == nil {
		t.Fatal("expected destination error")
	}
}
