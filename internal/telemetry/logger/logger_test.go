package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(t *testing.T, level, format string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := New(Config{Level: level, Format: format, Output: &buf})
	t.Cleanup(func() { SetLevel("info") })
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLogger_JSON(t *testing.T) {
	l, buf := newBufferLogger(t, "debug", "json")
	l.Info("attempt", "username", "magma", "outcome", "success")

	m := decodeLine(t, buf)
	if m["msg"] != "attempt" || m["username"] != "magma" || m["level"] != "INFO" {
		t.Errorf("unexpected log line: %v", m)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "text")
	l.Warn("slow load", "ms", 120)
	if !strings.Contains(buf.String(), "level=WARN") || !strings.Contains(buf.String(), "ms=120") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn", "json")
	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("error should pass a warn filter")
	}
	if l.Enabled(slog.LevelInfo) {
		t.Error("Enabled(info) should be false at warn")
	}
}

func TestSetLevel(t *testing.T) {
	l, buf := newBufferLogger(t, "error", "json")
	l.Info("before")
	SetLevel("debug")
	l.Info("after")

	if strings.Contains(buf.String(), "before") || !strings.Contains(buf.String(), "after") {
		t.Errorf("SetLevel did not take effect: %q", buf.String())
	}
	if GetLevel() != "debug" {
		t.Errorf("GetLevel() = %q, want debug", GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if ValidLevel("bogus") || !ValidLevel("warn") {
		t.Error("ValidLevel mismatch")
	}
}

func TestLogger_With(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	l.With("component", "cache").Info("evicted")

	if m := decodeLine(t, buf); m["component"] != "cache" {
		t.Errorf("With attribute missing: %v", m)
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("dropped")
	if l.Enabled(slog.LevelError) {
		t.Error("Discard logger should not be enabled")
	}
}

func TestDefault(t *testing.T) {
	old := Default()
	defer SetDefault(old)

	l, buf := newBufferLogger(t, "info", "json")
	SetDefault(l)
	Info("package level")
	Warn("package level")
	Error("package level")
	if strings.Count(buf.String(), "package level") != 3 {
		t.Errorf("package functions should use the default logger: %q", buf.String())
	}
}

func TestL_EnrichesFromContext(t *testing.T) {
	l, buf := newBufferLogger(t, "info", "json")
	ctx := WithLogger(context.Background(), l)
	ctx = WithAttemptID(ctx, "01J0000000000000000000000")
	ctx = WithTraceID(ctx, "trace-1")

	L(ctx).Info("hello")
	m := decodeLine(t, buf)
	if m["attempt_id"] != "01J0000000000000000000000" || m["trace_id"] != "trace-1" {
		t.Errorf("context ids missing: %v", m)
	}
}

func TestFromContext_Default(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("FromContext without logger should return Default()")
	}
	if AttemptIDFromContext(context.Background()) != "" || TraceIDFromContext(context.Background()) != "" {
		t.Error("empty context should have no ids")
	}
}
