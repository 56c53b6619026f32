package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestInfoWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	Info("oauth callback completed", map[string]any{
		"provider": "google",
		"branch":   "linked",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not json: %v (%q)", err, buf.String())
	}
	if entry["message"] != "oauth callback completed" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["provider"] != "google" || entry["branch"] != "linked" {
		t.Errorf("fields missing: %v", entry)
	}
}

func TestInitFiltersBelowLevel(t *testing.T) {
	Init("warn", "json")
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() {
		Init("info", "json")
		SetOutput(os.Stdout)
	}()

	Info("hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}

	Warn("shown", nil)
	if buf.Len() == 0 {
		t.Fatal("warn not written at warn level")
	}
}
