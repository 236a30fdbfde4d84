package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogSuppressedByDefault(t *testing.T) {
	Disable()
	if Enabled() {
		t.Fatal("expected debug tracing disabled by default")
	}

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	LogInclude("resolved %s", "a.cnx")
	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}
}

func TestLogPrefixedWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	Enable()
	defer Disable()

	LogGenerate("emitting %s", "main.c")

	got := buf.String()
	if !strings.HasPrefix(got, "[DEBUG:GENERATE] ") {
		t.Fatalf("expected [DEBUG:GENERATE] prefix, got %q", got)
	}
	if !strings.Contains(got, "emitting main.c") {
		t.Fatalf("expected message content, got %q", got)
	}
}
