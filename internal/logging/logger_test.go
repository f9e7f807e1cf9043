package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "folio.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("pool started", FieldComponent, "pool")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "pool started") {
		t.Fatalf("log file missing record: %s", data)
	}
	if !strings.Contains(string(data), `"component":"pool"`) {
		t.Fatalf("log file missing component attr: %s", data)
	}
}

func TestWithContextAddsTaskFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := WithTask(context.Background(), "slot-1", "save-archive")
	WithContext(ctx, logger).Info("task started")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"slot_id":"slot-1"`) {
		t.Fatalf("log record missing slot attr: %s", data)
	}
	if !strings.Contains(string(data), `"operation":"save-archive"`) {
		t.Fatalf("log record missing operation attr: %s", data)
	}

	// A context without task identity leaves the logger untouched.
	if got := WithContext(context.Background(), logger); got != logger {
		t.Fatal("expected the original logger back for a bare context")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	// Should not panic and should swallow records at every level.
	logger.Debug("dropped")
	logger.Error("dropped too")
}
