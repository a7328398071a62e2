package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_AutoUsesJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "info", Format: "auto"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("pass finished", "jobs", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["msg"] != "pass finished" || entry["jobs"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "console"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hello", "job_id", "v1")
	if out := buf.String(); !strings.Contains(out, "msg=hello") || !strings.Contains(out, "job_id=v1") {
		t.Errorf("output = %q", out)
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(&buf, Options{Level: "warn", Format: "json"})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn not logged at warn level")
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Options{Level: "loud"}); err == nil {
		t.Error("New() with bad level error = nil")
	}
	if _, err := New(&bytes.Buffer{}, Options{Format: "xml"}); err == nil {
		t.Error("New() with bad format error = nil")
	}
}
