package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf, level)
	t.Cleanup(func() { Configure("info", true) })
	return &buf
}

func TestTagAddsScope(t *testing.T) {
	buf := capture(t, "debug")
	Tag("FAL Route").Info("submitted %s", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON entry, got %q: %v", buf.String(), err)
	}
	if entry["scope"] != "FAL Route" {
		t.Errorf("scope = %v", entry["scope"])
	}
	if entry["message"] != "submitted abc" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, "warn")
	Info("hidden")
	Debug("hidden")
	Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info/debug leaked through warn level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn entry missing: %q", buf.String())
	}
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	buf := capture(t, "chatty")
	Debug("hidden")
	Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestHTTPLevelByStatus(t *testing.T) {
	buf := capture(t, "debug")
	HTTP("POST", "/api/generate", 502, 1500*time.Millisecond)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["level"] != "error" {
		t.Errorf("level = %v, want error", entry["level"])
	}
	if entry["took"] != "1.50s" {
		t.Errorf("took = %v", entry["took"])
	}
}

func TestFmtDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{2500 * time.Microsecond, "2.5ms"},
		{42 * time.Millisecond, "42ms"},
		{3 * time.Second, "3.00s"},
	}
	for _, tt := range tests {
		if got := fmtDuration(tt.d); got != tt.want {
			t.Errorf("fmtDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
