package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("bundle activated", "version", "1.2.0")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "bundle activated" {
		t.Errorf("msg = %v, want %q", entry["msg"], "bundle activated")
	}
	if entry["version"] != "1.2.0" {
		t.Errorf("version = %v, want %q", entry["version"], "1.2.0")
	}
}

func TestSetupLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Errorf("info record logged at warn level: %q", out)
	}
	if !strings.Contains(out, "emitted") {
		t.Errorf("warn record missing from output: %q", out)
	}
}

func TestSetupRejectsUnknownValues(t *testing.T) {
	if _, err := Setup(Config{Level: "loud"}); err == nil {
		t.Error("Setup() with unknown level did not fail")
	}
	if _, err := Setup(Config{Format: "xml"}); err == nil {
		t.Error("Setup() with unknown format did not fail")
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	Component(logger, "rollout-controller").Info("promoted")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "rollout-controller" {
		t.Errorf("component = %v, want %q", entry["component"], "rollout-controller")
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Error("FromContext() did not return the stored logger")
	}
	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext() without stored logger returned nil")
	}
}
