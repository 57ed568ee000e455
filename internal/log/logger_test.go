package log

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"firestige.xyz/eapsniffer/internal/config"
)

// captureStdout redirects the stdout writer and restores the default logger afterwards.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevLogger := stdout, slog.Default()
	stdout = &buf
	t.Cleanup(func() {
		Flush()
		stdout = prevOut
		slog.SetDefault(prevLogger)
	})
	return &buf
}

func TestParseLevelValid(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if err != nil {
				t.Errorf("parseLevel(%q) returned error: %v", tt.input, err)
			}
			if level != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	for _, input := range []string{"invalid", "trace", "fatal", ""} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseLevel(input); err == nil {
				t.Errorf("parseLevel(%q) should return error, got nil", input)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	buf := captureStdout(t)

	if err := Init(config.LogConfig{Level: "info", Format: "json"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("user has been authorized", "user", "alice", "identifier", 7)
	slog.Debug("filtered")

	output := buf.String()
	if !strings.Contains(output, `"msg":"user has been authorized"`) {
		t.Errorf("JSON output should contain message field: %s", output)
	}
	if !strings.Contains(output, `"user":"alice"`) || !strings.Contains(output, `"identifier":7`) {
		t.Errorf("JSON output should contain attributes: %s", output)
	}
	if strings.Contains(output, "filtered") {
		t.Error("Debug message should be filtered out at info level")
	}
}

func TestInitText(t *testing.T) {
	buf := captureStdout(t)

	if err := Init(config.LogConfig{Level: "warn", Format: "text"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("info message")
	slog.Warn("emit failed", "direction", "to_server")

	output := buf.String()
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out at warn level")
	}
	if !strings.Contains(output, "direction=to_server") {
		t.Errorf("Text output should contain key=value: %s", output)
	}
}

func TestInitWithFileOutput(t *testing.T) {
	buf := captureStdout(t)
	logPath := filepath.Join(t.TempDir(), "test.log")

	cfg := config.LogConfig{
		Level:  "debug",
		Format: "json",
		File: config.FileLogConfig{
			Enabled:    true,
			Path:       logPath,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
	}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("test message", "key", "value")
	if err := Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Log file was not created at %s: %v", logPath, err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("Log file missing record: %s", data)
	}
	if !strings.Contains(buf.String(), "test message") {
		t.Error("stdout should receive records as well")
	}

	// Flush is idempotent.
	if err := Flush(); err != nil {
		t.Errorf("second Flush failed: %v", err)
	}
}

func TestInitErrors(t *testing.T) {
	captureStdout(t)

	tests := []struct {
		name string
		cfg  config.LogConfig
		want string
	}{
		{"invalid level", config.LogConfig{Level: "invalid", Format: "json"}, "invalid log level"},
		{"invalid format", config.LogConfig{Level: "info", Format: "xml"}, "unsupported log format"},
		{"missing file path", config.LogConfig{Level: "info", Format: "json", File: config.FileLogConfig{Enabled: true}}, "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.cfg)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}
