package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func readLines(t *testing.T, content string) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v: %s", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file and parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "postflow.log")

		logger, err := NewLogger(path, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", path)
		}
	})

	t.Run("writes to stderr when path is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.file != nil {
			t.Error("expected file to be nil when path is empty")
		}
	})
}

func TestLogLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postflow.log")

	logger, err := NewLogger(path, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("debug message", "key", "value")
	logger.Info("info message", "key", "value")
	logger.Warn("warn message", "key", "value")
	logger.Error("error message", "key", "value")
	logger.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	entries := readLines(t, string(content))
	if len(entries) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(entries))
	}

	expectedLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for i, entry := range entries {
		if entry["level"] != expectedLevels[i] {
			t.Errorf("line %d: expected level %s, got %v", i, expectedLevels[i], entry["level"])
		}
		if entry["key"] != "value" {
			t.Errorf("line %d: expected key=value, got key=%v", i, entry["key"])
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	if entries := readLines(t, buf.String()); len(entries) != 2 {
		t.Fatalf("expected 2 log lines (WARN and ERROR only), got %d: %s", len(entries), buf.String())
	}
}

func TestSetLevel_AppliesToChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelError)
	child := logger.WithTenant("t1")

	child.Info("dropped")
	logger.SetLevel("debug")
	child.Debug("kept")

	entries := readLines(t, buf.String())
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(entries))
	}
	if entries[0]["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", entries[0]["msg"])
	}
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelInfo)

	logger.WithTenant("tenant-1").WithPost("post-2").WithCommand("approve").Info("test message", "extra", "data")

	entries := readLines(t, buf.String())
	if len(entries) != 1 {
		t.Fatalf("expected 1 line, got %d", len(entries))
	}
	entry := entries[0]
	if entry["tenant_id"] != "tenant-1" {
		t.Errorf("expected tenant_id=tenant-1, got %v", entry["tenant_id"])
	}
	if entry["post_id"] != "post-2" {
		t.Errorf("expected post_id=post-2, got %v", entry["post_id"])
	}
	if entry["command"] != "approve" {
		t.Errorf("expected command=approve, got %v", entry["command"])
	}
	if entry["extra"] != "data" {
		t.Errorf("expected extra=data, got %v", entry["extra"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelInfo)

	logger.With("foo", "bar", "count", 42).Info("test message")

	entry := readLines(t, buf.String())[0]
	if entry["foo"] != "bar" {
		t.Errorf("expected foo=bar, got %v", entry["foo"])
	}
	// JSON numbers are float64
	if entry["count"] != float64(42) {
		t.Errorf("expected count=42, got %v", entry["count"])
	}

	if logger.With() != logger {
		t.Error("With() without args should return the receiver")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	if err := logger.Close(); err != nil {
		t.Errorf("NopLogger.Close() returned error: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postflow.log")
	logger, err := NewLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postflow.log")
	logger, err := NewLogger(path, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			child := logger.With("worker", n)
			for j := 0; j < 20; j++ {
				child.Info("line", "j", j)
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if entries := readLines(t, string(content)); len(entries) != 200 {
		t.Errorf("expected 200 lines, got %d", len(entries))
	}
}
