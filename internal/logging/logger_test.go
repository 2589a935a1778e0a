package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	scoped := NewComponentLogger(logger, "sigcache")
	scoped.Info("cache loaded", Args(Int("entry_count", 3))...)

	out := buf.String()
	if !strings.Contains(out, "[sigcache]") {
		t.Errorf("expected component tag in output, got %q", out)
	}
	if !strings.Contains(out, "entry_count=3") {
		t.Errorf("expected attr in output, got %q", out)
	}
	if !strings.Contains(out, "cache loaded") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	WarnWithContext(logger, "store unreadable", "watched_db_load_failed", Error(errors.New("boom")))

	out := buf.String()
	for _, want := range []string{FieldEventType, FieldErrorHint, FieldImpact} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s field in output, got %q", want, out)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must report disabled at every level.
	logger.Info("dropped")
	if logger.Enabled(nil, 0) {
		t.Error("nop logger should be disabled")
	}
}
