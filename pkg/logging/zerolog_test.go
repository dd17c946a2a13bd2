package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sdejongh/filenorris/pkg/config"
)

func TestZerologLogger_WritesToFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "filenorris-logging-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engine.log")
	logger, err := NewZerologLogger(ZerologConfig{Level: DebugLevel, File: path})
	if err != nil {
		t.Fatalf("NewZerologLogger() error = %v", err)
	}

	ctx := context.Background()
	logger.Info(ctx, "operation submitted", Fields{"id": 1, "kind": "copy"})
	logger.Debug(ctx, "checkpoint", nil)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log file has %d lines, want 2", len(lines))
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if record["message"] != "operation submitted" {
		t.Errorf("message = %v, want 'operation submitted'", record["message"])
	}
	if record["kind"] != "copy" {
		t.Errorf("kind = %v, want copy", record["kind"])
	}
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	dir, err := os.MkdirTemp("", "filenorris-logging-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engine.log")
	logger, err := NewZerologLogger(ZerologConfig{Level: WarnLevel, File: path})
	if err != nil {
		t.Fatalf("NewZerologLogger() error = %v", err)
	}

	ctx := context.Background()
	logger.Debug(ctx, "hidden", nil)
	logger.Info(ctx, "hidden too", nil)
	logger.Warn(ctx, "visible", nil)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if strings.Count(strings.TrimSpace(string(data)), "\n")+1 != 1 {
		t.Errorf("expected exactly one log line, got:\n%s", data)
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("warn line missing from log output")
	}
}

func TestZerologLogger_WithFields(t *testing.T) {
	dir, err := os.MkdirTemp("", "filenorris-logging-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engine.log")
	logger, err := NewZerologLogger(ZerologConfig{Level: InfoLevel, File: path})
	if err != nil {
		t.Fatalf("NewZerologLogger() error = %v", err)
	}

	child := logger.WithFields(Fields{"operation_id": 42})
	child.Info(context.Background(), "progress", nil)
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"operation_id":42`) {
		t.Errorf("inherited field missing from output:\n%s", data)
	}
}

func TestFromConfig_DisabledYieldsNullLogger(t *testing.T) {
	logger, err := FromConfig(config.LoggingConfig{Enabled: false, Level: "debug"})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if _, ok := logger.(*NullLogger); !ok {
		t.Errorf("FromConfig() with logging disabled = %T, want *NullLogger", logger)
	}
}

func TestFromConfig_EnabledWritesToConfiguredFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "filenorris-logging-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "engine.log")
	logger, err := FromConfig(config.LoggingConfig{Enabled: true, Level: "warn", File: path})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}

	ctx := context.Background()
	logger.Info(ctx, "filtered out", nil)
	logger.Warn(ctx, "disk almost full", nil)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "filtered out") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(string(data), "disk almost full") {
		t.Errorf("warn line missing from output:\n%s", data)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.name); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNullLogger_ImplementsLogger(t *testing.T) {
	var logger Logger = NewNullLogger()
	logger.Info(context.Background(), "discarded", Fields{"x": 1})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
