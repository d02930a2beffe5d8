package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != Default() {
		t.Error("expected default logger from empty context")
	}
	if FromContext(nil) != Default() { //nolint:staticcheck // nil context is part of the contract
		t.Error("expected default logger from nil context")
	}
}

func TestWithConnectorFieldPropagates(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	ctx := WithLogger(context.Background(), &logger)
	ctx = WithConnector(ctx, "umbra")

	Ctx(ctx).Info().Msg("fetch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["connector"] != "umbra" {
		t.Errorf("connector field = %v, want umbra", entry["connector"])
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := RequestID(ctx); got != "req-42" {
		t.Errorf("RequestID = %q, want req-42", got)
	}
	if got := RequestID(context.Background()); got != "" {
		t.Errorf("RequestID on empty context = %q, want empty", got)
	}
}

func TestNewLoggerFromConfigLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerFromConfig(&Config{Level: "warn", Writer: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	if bytes.Contains(buf.Bytes(), []byte("hidden")) {
		t.Error("info event should be filtered at warn level")
	}
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Error("warn event should be emitted at warn level")
	}
}
