package logx

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewAddsServiceAndFiltersLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Service: "clinic"})
	logger.Debug().Msg("hidden")
	logger.Info().Str("thread_id", "t-1").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want only the info entry: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry["service"] != "clinic" || entry["thread_id"] != "t-1" || entry["message"] != "shown" {
		t.Fatalf("entry = %#v", entry)
	}
}

func TestLevelOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		conf Config
		want zerolog.Level
	}{
		{Config{}, zerolog.InfoLevel},
		{Config{Debug: true}, zerolog.DebugLevel},
		{Config{Debug: true, Level: "warn"}, zerolog.WarnLevel},
		{Config{Level: "nonsense"}, zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := levelOf(tc.conf); got != tc.want {
			t.Fatalf("levelOf(%#v) = %v, want %v", tc.conf, got, tc.want)
		}
	}
}
