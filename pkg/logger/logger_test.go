package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
	}
	for _, tt := range tests {
		level, err := parseLogLevel(tt.input)
		if err != nil {
			t.Errorf("parseLogLevel(%q) returned error: %v", tt.input, err)
		}
		if level != tt.expected {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, level, tt.expected)
		}
	}

	if _, err := parseLogLevel("chatty"); err == nil {
		t.Error("Expected error for unknown log level")
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "chatty"}); err == nil {
		t.Error("Expected error for invalid level")
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "mediagrab.log")

	log, err := New(&Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	log.InfoWithFields("test entry", map[string]interface{}{
		"count":   3,
		"enabled": true,
	})

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if len(content) == 0 {
		t.Error("Expected log output in the file")
	}
}

func TestWithFieldsChaining(t *testing.T) {
	log, err := New(&Config{Level: "disabled"})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	// chained loggers are independent and never panic
	child := log.WithField("site", "bunkr").WithFields(map[string]interface{}{"worker": 1})
	child.Debug("debug entry")
	child.Info("info entry")
	child.WithError(nil).Warn("warn entry")

	if child == log {
		t.Error("Expected WithField to return a derived logger")
	}
}

func TestGetLoggerDefault(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("Expected a default global logger")
	}
}
