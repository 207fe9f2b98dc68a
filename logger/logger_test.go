package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DEBUG,
		" WARN ":  WARN,
		"warning": WARN,
		"error":   ERROR,
		"info":    INFO,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer SetLevel(INFO)

	Info("hidden")
	Debugf("hidden %d", 1)
	Warnf("shown %s", "warn")
	Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected messages below WARN to be dropped, got %q", out)
	}
	if !strings.Contains(out, "[WARN]  ") || !strings.Contains(out, "shown warn") {
		t.Errorf("Expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] ") || !strings.Contains(out, "shown error") {
		t.Errorf("Expected error line, got %q", out)
	}
	if strings.Contains(out, colorRed) {
		t.Error("Expected uncolored output")
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	if err := Init(path, false, DEBUG); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	Debug("to file")
	Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[DEBUG] ") || !strings.Contains(string(data), "to file") {
		t.Errorf("Unexpected log file contents %q", data)
	}
}

func TestInitRequiresOutput(t *testing.T) {
	if err := Init("", false, INFO); err == nil {
		t.Error("Expected error without any output")
	}
}
