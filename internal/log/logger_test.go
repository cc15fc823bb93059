package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentBudget, Output: &buf})

	logger.Info("Budget created", FieldOwner, "alice")
	logger.WithComponent(ComponentDashboard).Debug("Summary served")

	out := buf.String()
	if !strings.Contains(out, "component=budget") || !strings.Contains(out, "owner=alice") {
		t.Errorf("missing fields in %q", out)
	}
	if !strings.Contains(out, "component=dashboard") {
		t.Errorf("component override missing in %q", out)
	}
}

func TestContextLogger(t *testing.T) {
	logger := Discard().With(FieldRequestID, "req-1")
	ctx := NewContext(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected the stored logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Error("expected fallback logger outside requests")
	}
}

func TestAccessLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	access := NewAccessLogger(New(Config{Level: slog.LevelInfo, Component: ComponentTrace, Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/budgets?month=3", nil)

	access.Start(context.Background(), r, "10.0.0.1")
	if buf.Len() != 0 {
		t.Errorf("start line should be debug only, got %q", buf.String())
	}

	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "level=INFO"},
		{http.StatusNotFound, "level=WARN"},
		{http.StatusInternalServerError, "level=ERROR"},
	}
	for _, tt := range tests {
		buf.Reset()
		access.End(context.Background(), r, tt.status, 12, "10.0.0.1")
		out := buf.String()
		if !strings.Contains(out, tt.level) || !strings.Contains(out, "path=/api/budgets") {
			t.Errorf("status %d: unexpected line %q", tt.status, out)
		}
	}
}

func TestFields(t *testing.T) {
	f := NewFields().WithOwner("alice").WithBudget("b1", "Food", 3, 2025).WithError(nil)
	if v, _ := f.Get(FieldOwner); v != "alice" {
		t.Errorf("owner = %v", v)
	}
	if v, _ := f.Get(FieldMonth); v != 3 {
		t.Errorf("month = %v", v)
	}
	if _, ok := f.Get(FieldError); ok {
		t.Error("nil error must not add a field")
	}
	want := []any{FieldOwner, "alice", FieldBudgetID, "b1", FieldCategory, "Food", FieldMonth, 3, FieldYear, 2025}
	got := f.ToSlice()
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHTTPRequestFieldsSkipEmpty(t *testing.T) {
	f := NewFields().WithHTTPRequest(http.MethodGet, "/healthz", "", "")
	if _, ok := f.Get(FieldQuery); ok {
		t.Error("empty query must be skipped")
	}
	if len(f) != 4 {
		t.Errorf("len = %d, want 4", len(f))
	}
}
