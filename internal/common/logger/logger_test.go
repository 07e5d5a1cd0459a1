package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
)

// nopCloser captures file log output
type nopCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

// TestVerboseShowsFetchDetails tests that --verbose shows debug messages
func TestVerboseShowsFetchDetails(t *testing.T) {
	buf := new(bytes.Buffer)
	log := New(buf, LevelInfo)

	log.Debug("skipping core: no update strategy")
	if strings.Contains(buf.String(), "skipping core") {
		t.Error("Debug message should not appear at Info level")
	}

	log.SetVerbose(true)

	log.Debug("skipping terminal: no update strategy")
	if !strings.Contains(buf.String(), "skipping terminal") {
		t.Error("Debug message should appear when verbose is enabled")
	}
}

// TestQuietKeepsFailures tests that --quiet suppresses progress but not failures
func TestQuietKeepsFailures(t *testing.T) {
	buf := new(bytes.Buffer)
	log := New(buf, LevelInfo)
	log.SetQuiet(true)

	log.Info("fetching git")
	log.Error("failed to update git: boom")

	out := buf.String()
	if strings.Contains(out, "fetching git") {
		t.Error("Info message should not appear when quiet is enabled")
	}
	if !strings.Contains(out, "failed to update git") {
		t.Error("Error message should appear even in quiet mode")
	}
}

// TestLogLevelHierarchy tests that log levels work correctly
func TestLogLevelHierarchy(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected []string
		hidden   []string
	}{
		{"debug shows all", LevelDebug, []string{"d-msg", "i-msg", "w-msg", "e-msg"}, nil},
		{"info hides debug", LevelInfo, []string{"i-msg", "w-msg", "e-msg"}, []string{"d-msg"}},
		{"warn hides info", LevelWarn, []string{"w-msg", "e-msg"}, []string{"d-msg", "i-msg"}},
		{"error only", LevelError, []string{"e-msg"}, []string{"d-msg", "i-msg", "w-msg"}},
		{"quiet hides everything", LevelQuiet, nil, []string{"d-msg", "i-msg", "w-msg", "e-msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			log := New(buf, tt.level)

			log.Debug("d-msg")
			log.Info("i-msg")
			log.Warn("w-msg")
			log.Error("e-msg")

			out := buf.String()
			for _, m := range tt.expected {
				if !strings.Contains(out, m) {
					t.Errorf("Expected %q in output %q", m, out)
				}
			}
			for _, m := range tt.hidden {
				if strings.Contains(out, m) {
					t.Errorf("Did not expect %q in output %q", m, out)
				}
			}
		})
	}
}

// TestFileLogGetsEveryLevel tests that the log file receives messages
// hidden from the terminal, with level tags
func TestFileLogGetsEveryLevel(t *testing.T) {
	buf := new(bytes.Buffer)
	file := &nopCloser{}
	log := New(buf, LevelError)
	log.fileOutput = file

	log.Debug("resolved git VERSION = 2.47.1")

	if buf.Len() != 0 {
		t.Errorf("Terminal should stay silent, got %q", buf.String())
	}
	if !strings.Contains(file.String(), "DEBUG: resolved git VERSION = 2.47.1") {
		t.Errorf("File log missing debug line: %q", file.String())
	}

	log.Close()
	if !file.closed {
		t.Error("Close should close the log file")
	}
}

// TestLogDirHonorsXDGStateHome tests the log directory location
func TestLogDirHonorsXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	dir, err := LogDir()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dir != "/tmp/state/shaft-meta/logs" {
		t.Errorf("Unexpected log dir %q", dir)
	}
}

// TestPackageLevelFunctions tests the package-level convenience functions
func TestPackageLevelFunctions(t *testing.T) {
	once = sync.Once{}
	defaultLogger = nil

	buf := new(bytes.Buffer)
	once.Do(func() {
		defaultLogger = New(buf, LevelDebug)
	})

	Debug("debug test")
	Info("info test")
	Warn("warn test")
	Error("error test")

	out := buf.String()
	for _, m := range []string{"debug test", "info test", "warn test", "error test"} {
		if !strings.Contains(out, m) {
			t.Errorf("Package-level function output missing %q", m)
		}
	}
}
