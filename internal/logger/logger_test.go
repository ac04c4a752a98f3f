package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// resetLogger restores the default logger after a test.
func resetLogger() {
	Init(Options{})
}

func TestOptions_Level(t *testing.T) {
	tests := []struct {
		opts Options
		want slog.Level
	}{
		{Options{}, slog.LevelInfo},
		{Options{Debug: true}, slog.LevelDebug},
		{Options{Quiet: true}, slog.LevelError},
		{Options{Debug: true, Quiet: true}, slog.LevelError},
	}
	for _, tt := range tests {
		if got := tt.opts.Level(); got != tt.want {
			t.Errorf("%+v.Level() = %v, want %v", tt.opts, got, tt.want)
		}
	}
}

func TestInit_DefaultLevel_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("processing file", "file", "invoice.pdf")
	if !strings.Contains(buf.String(), "processing file") {
		t.Error("Info message should be logged at default level")
	}

	buf.Reset()
	Debug("chunk sent")
	if buf.Len() != 0 {
		t.Errorf("Debug message should not be logged at default level, got %q", buf.String())
	}
}

func TestInit_DebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	Debug("extraction pass complete", "pass", 2)
	if !strings.Contains(buf.String(), "extraction pass complete") {
		t.Error("Debug message should be logged when Debug=true")
	}
}

func TestInit_QuietOverridesDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Quiet: true, Output: buf})
	defer resetLogger()

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := buf.String()
	for _, skipped := range []string{"debug message", "info message", "warn message"} {
		if strings.Contains(output, skipped) {
			t.Errorf("%q should not be logged when Quiet=true", skipped)
		}
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error should be logged when Quiet=true")
	}
}

func TestInit_TextOmitsTime(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("batch complete", "succeeded", 3, "failed", 1)

	output := buf.String()
	if strings.Contains(output, "time=") {
		t.Errorf("text output should not carry a timestamp: %q", output)
	}
	for _, want := range []string{"level=INFO", `msg="batch complete"`, "succeeded=3", "failed=1"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %s: %q", want, output)
		}
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Warn("template shadowed", "name", "invoice")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "template shadowed" || entry["name"] != "invoice" || entry["level"] != "WARN" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("JSON output should keep the timestamp")
	}
}

func TestInit_CustomLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	custom := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	Init(Options{Logger: custom, Quiet: true})
	defer resetLogger()

	Debug("from custom")
	if !strings.Contains(buf.String(), "from custom") {
		t.Error("custom logger should receive messages regardless of other options")
	}
}

func TestEnabled(t *testing.T) {
	Init(Options{Quiet: true, Output: &bytes.Buffer{}})
	defer resetLogger()

	if Enabled(slog.LevelInfo) {
		t.Error("info should be disabled when quiet")
	}
	if !Enabled(slog.LevelError) {
		t.Error("error should be enabled when quiet")
	}
}

func TestErr(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Error("file failed", Err(errors.New("unreadable pdf")))
	if !strings.Contains(buf.String(), `error="unreadable pdf"`) {
		t.Errorf("expected error attribute, got %q", buf.String())
	}
}

func TestWith_ReturnsLoggerWithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	l := With("run_id", "abc123")
	if l == nil {
		t.Fatal("With() returned nil")
	}
	l.Info("batch starting")

	output := buf.String()
	if !strings.Contains(output, "batch starting") || !strings.Contains(output, "run_id=abc123") {
		t.Errorf("expected message and attributes, got %q", output)
	}
}

func TestContextVariants(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	ctx := context.Background()
	DebugContext(ctx, "debug with context")
	InfoContext(ctx, "info with context")
	WarnContext(ctx, "warn with context")
	ErrorContext(ctx, "error with context")

	output := buf.String()
	for _, want := range []string{"debug with context", "info with context", "warn with context", "error with context"} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}
