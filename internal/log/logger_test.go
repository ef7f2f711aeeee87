package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	return rec
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, ComponentStorage)
	if l.Component() != ComponentStorage {
		t.Fatalf("component = %q", l.Component())
	}
	l.With(FieldRequestID, "req_1").InfoContext(context.Background(), "saved")
	rec := lastRecord(t, &buf)
	if rec[FieldComponent] != ComponentStorage || rec[FieldRequestID] != "req_1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newTestLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest("GET", "/api/goals?access_token=secret", nil)
		sl.LogHTTPEnd(context.Background(), r, "req_9", tt.status, 12, "203.0.113.9")

		rec := lastRecord(t, &buf)
		if rec["level"] != tt.level {
			t.Errorf("status %d logged at %v, want %s", tt.status, rec["level"], tt.level)
		}
		if _, ok := rec[FieldQuery]; ok {
			t.Errorf("query string must not be logged: %v", rec)
		}
		if rec[FieldPath] != "/api/goals" || rec[FieldRequestID] != "req_9" {
			t.Errorf("unexpected record %v", rec)
		}
	}
}

func TestLogErrorUsesGivenComponent(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newTestLogger(&buf, ComponentApp))
	sl.LogError(context.Background(), "Server shutdown error", errors.New("deadline exceeded"),
		ComponentHTTP, OpShutdown, NewFields().WithErrorType(ErrorTypeNetwork))

	out := buf.String()
	if strings.Count(out, `"component"`) != 1 {
		t.Fatalf("expected a single component key: %s", out)
	}
	rec := lastRecord(t, &buf)
	if rec[FieldComponent] != ComponentHTTP || rec[FieldOperation] != OpShutdown || rec[FieldError] != "deadline exceeded" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
