package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{zlog: zerolog.New(buf).With().Timestamp().Logger()}
}

func TestNewWithWriter_DevelopmentMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("development", &buf)

	logger.Debug("cache miss", map[string]interface{}{"dataset": "gl_transactions"})

	output := buf.String()
	if !strings.Contains(output, "cache miss") {
		t.Error("Expected debug output in development mode")
	}
	// Console writer output is not JSON
	var entry map[string]interface{}
	if json.Unmarshal([]byte(output), &entry) == nil {
		t.Error("Expected pretty console output in development mode")
	}
}

func TestNewWithWriter_ProductionMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("production", &buf)

	logger.Debug("hidden", nil)
	if buf.Len() != 0 {
		t.Error("Debug message should not appear in production logging")
	}

	logger.Info("dataset loaded", map[string]interface{}{"rows": 108})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected valid JSON output, got error: %v", err)
	}
	if entry["service"] != "executive-portal" {
		t.Errorf("Expected service field, got %v", entry["service"])
	}
	if entry["rows"] != float64(108) {
		t.Errorf("Expected rows field 108, got %v", entry["rows"])
	}
}

func TestNew_ReturnsLogger(t *testing.T) {
	logger := New("production")
	if logger == nil || logger.GetZerolog() == nil {
		t.Fatal("Expected logger to be created")
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *Logger)
		level string
	}{
		{"debug", func(l *Logger) { l.Debug("msg", map[string]interface{}{"k": "v"}) }, "debug"},
		{"info", func(l *Logger) { l.Info("msg", map[string]interface{}{"k": "v"}) }, "info"},
		{"warn", func(l *Logger) { l.Warn("msg", map[string]interface{}{"k": "v"}) }, "warn"},
		{"error", func(l *Logger) { l.Error("msg", errors.New("boom"), map[string]interface{}{"k": "v"}) }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(newBufferLogger(&buf))

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("Expected valid JSON output, got error: %v", err)
			}
			if entry["level"] != tt.level {
				t.Errorf("Expected level %s, got %v", tt.level, entry["level"])
			}
			if entry["k"] != "v" {
				t.Error("Expected log output to contain field value")
			}
		})
	}
}

func TestError_IncludesError(t *testing.T) {
	var buf bytes.Buffer
	newBufferLogger(&buf).Error("load failed", errors.New("source unavailable"), nil)

	if !strings.Contains(buf.String(), "source unavailable") {
		t.Error("Expected log output to contain error message")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	child := newBufferLogger(&buf).With(map[string]interface{}{
		"component": "cache",
		"version":   "1.0",
	})

	child.Info("test message", nil)

	output := buf.String()
	if !strings.Contains(output, "cache") {
		t.Error("Expected log output to contain component field from context")
	}
	if !strings.Contains(output, "1.0") {
		t.Error("Expected log output to contain version field from context")
	}
}

func TestWithRequestIDAndDataset(t *testing.T) {
	var buf bytes.Buffer
	child := newBufferLogger(&buf).WithRequestID("req-12345").WithDataset("cashflow_items")

	child.Info("request received", nil)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected valid JSON output, got error: %v", err)
	}
	if entry["request_id"] != "req-12345" {
		t.Error("Expected log output to contain request ID")
	}
	if entry["dataset"] != "cashflow_items" {
		t.Error("Expected log output to contain dataset")
	}
}

func TestNop_DiscardsOutput(t *testing.T) {
	logger := Nop()
	// Should not panic and must not write anywhere
	logger.Info("discarded", map[string]interface{}{"k": "v"})
	logger.WithDataset("x").Warn("discarded", nil)
}
