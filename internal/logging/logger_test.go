package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sglxpipe/internal/config"
	"sglxpipe/internal/services"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "debug"

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("hello", slog.String("run", "SC011_022319"))

	data, err := os.ReadFile(cfg.LogPath())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", data, err)
	}
	if entry["msg"] != "hello" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v", entry["level"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
}

func TestConsoleHandlerRendersSubject(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("stage started",
		slog.String(FieldRun, "SC011_022319"),
		slog.String(FieldProbe, "0"),
		slog.String(FieldStage, "catgt"),
		slog.String("note", "two words"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO SC011_022319 imec0 (catgt): stage started") {
		t.Fatalf("unexpected subject rendering: %q", line)
	}
	if !strings.Contains(line, `note="two words"`) {
		t.Fatalf("expected quoted attribute: %q", line)
	}
	if strings.Contains(line, "stage=catgt") {
		t.Fatalf("subject fields should not repeat as attributes: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level: %q", buf.String())
	}
	logger.Warn("loud")
	if !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestWithContextAddsPipelineFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newJSONHandler(&buf, lvl, false))

	ctx := services.WithPipelineID(context.Background(), "abc")
	ctx = services.WithRun(ctx, "SC011_022319")
	ctx = services.WithProbe(ctx, "1")
	ctx = services.WithStage(ctx, "tprime")

	WithContext(ctx, base).Info("done")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for key, want := range map[string]string{
		FieldPipelineID: "abc",
		FieldRun:        "SC011_022319",
		FieldProbe:      "1",
		FieldStage:      "tprime",
	} {
		if entry[key] != want {
			t.Fatalf("%s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	WarnWithContext(logger, "tool log cleanup failed", "tool_log_cleanup_failed",
		String(FieldErrorHint, "remove the file manually"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[FieldEventType] != "tool_log_cleanup_failed" {
		t.Fatalf("event_type = %v", entry[FieldEventType])
	}
	if entry[FieldErrorHint] != "remove the file manually" {
		t.Fatalf("error_hint overwritten: %v", entry[FieldErrorHint])
	}
	if entry[FieldImpact] == nil {
		t.Fatal("expected impact default")
	}
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		run, probe, stage string
		want              string
	}{
		{"", "", "", ""},
		{"r", "", "", "r"},
		{"r", "2", "", "r imec2"},
		{"", "2", "catgt", "imec2 (catgt)"},
		{"", "", "tprime", "(tprime)"},
	}
	for _, tt := range tests {
		if got := FormatSubject(tt.run, tt.probe, tt.stage); got != tt.want {
			t.Errorf("FormatSubject(%q,%q,%q) = %q, want %q", tt.run, tt.probe, tt.stage, got, tt.want)
		}
	}
}

func TestOpenWritersCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.log")
	if _, err := openWriters([]string{path, path}); err != nil {
		t.Fatalf("openWriters: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestErrorWithContextKeepsCallerEventType(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))

	ErrorWithContext(logger, "stage failed", "stage_failure",
		String(FieldEventType, "pipeline_failure"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[FieldEventType] != "pipeline_failure" {
		t.Fatalf("event_type = %v", entry[FieldEventType])
	}
	if entry[FieldErrorHint] != defaultErrorHint {
		t.Fatalf("error_hint = %v", entry[FieldErrorHint])
	}
	if _, ok := entry[FieldImpact]; ok {
		t.Fatal("errors carry no impact default")
	}
}

func TestNopLoggerDropsRecords(t *testing.T) {
	logger := NewComponentLogger(nil, "pipeline")
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
}
