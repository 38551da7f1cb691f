package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "patchkit.log")

	log, err := New(path, "INFO")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("test message", "key", "value")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v", entry["key"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v", entry["level"])
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.log")

	log, err := New(path, "WARN")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Debug("debug msg")
	log.Info("info msg")
	log.Warn("warn msg")
	log.Error("error msg")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, _ := os.ReadFile(path)
	out := string(data)

	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("filtered levels logged:\n%s", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Errorf("expected levels missing:\n%s", out)
	}
}

func TestChildLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.log")

	log, err := New(path, "INFO")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	child := log.WithTxn("txn-123").WithPath("/work/f.txt")
	child.Info("committed")

	// The parent is unaffected by the child's attributes.
	log.Info("plain")

	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), data)
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["txn"] != "txn-123" || first["path"] != "/work/f.txt" {
		t.Errorf("child entry = %v", first)
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := second["txn"]; ok {
		t.Errorf("parent entry inherited child attribute: %v", second)
	}
}

func TestWith(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.log")

	log, err := New(path, "INFO")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.With("component", "engine", "attempt", 2).Info("retrying")
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, _ := os.ReadFile(path)
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("unmarshal: %v\n%s", err, data)
	}
	if entry["component"] != "engine" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v", entry["attempt"])
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Info("discarded", "k", "v")
	log.WithTxn("t").Error("also discarded")
	if err := log.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.log")
	log, err := New(path, "INFO")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestValidLevels(t *testing.T) {
	levels := ValidLevels()
	if len(levels) != 4 {
		t.Fatalf("ValidLevels = %v", levels)
	}
}
