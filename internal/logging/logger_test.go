// Package logging tests for the structured logging facade.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "debug")
	Get().SetOutput(&buf)

	Info("ticket inserted", Fields{"reference": "TKT-1001"})

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("no log output written")
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, line)
	}
	if entry["msg"] != "ticket inserted" {
		t.Errorf("msg = %v, want %q", entry["msg"], "ticket inserted")
	}
	if entry["reference"] != "TKT-1001" {
		t.Errorf("reference field = %v, want TKT-1001", entry["reference"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
}

func TestErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "debug")
	Get().SetOutput(&buf)

	Error("sync failed", errors.New("connection refused"), Fields{"reference": "TKT-2"})

	out := buf.String()
	if !strings.Contains(out, "connection refused") {
		t.Errorf("error cause missing from output: %s", out)
	}
}

func TestGetWithoutInit(t *testing.T) {
	if Get() == nil {
		t.Fatal("Get returned nil logger")
	}
}
