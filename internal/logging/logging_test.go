package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestWithTraceIDAttachesTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	ctx := WithTraceID(context.Background(), logger)
	FromContext(ctx).Info("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}

	got, ok := record["trace_id"].(string)
	if !ok || got == "" {
		t.Fatalf("expected non-empty trace_id field, got %v", record["trace_id"])
	}

	if got != TraceID(ctx).String() {
		t.Errorf("logged trace_id %q does not match TraceID(ctx) %q", got, TraceID(ctx).String())
	}
}

func TestFromContextWithoutTraceIDReturnsDefault(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("expected a non-nil default logger")
	}
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "debug")
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected debug line to be emitted at debug level")
	}

	buf.Reset()
	logger = NewWithWriter(&buf, "warn")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info line to be suppressed at warn level, got %q", buf.String())
	}
}
