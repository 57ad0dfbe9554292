package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"", InfoLevel},
		{"info", InfoLevel},
		{"DEBUG", DebugLevel},
		{"  warn ", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStructuredLogger_FieldsAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	ctx := WithRequestID(context.Background(), "req-123")
	logger.Info(ctx, "[TEST] hello", Fields{"rows": 10, "stage": "FILTER"})
	logger.Error(ctx, "[TEST_ERROR] failed", Fields{}, errors.New("boom"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	info := entries[0].ContextMap()
	if info["rows"] != int64(10) {
		t.Errorf("rows = %v, want 10", info["rows"])
	}
	if info["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", info["request_id"])
	}

	errEntry := entries[1]
	if errEntry.Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", errEntry.Level)
	}
	if errEntry.ContextMap()["error"] != "boom" {
		t.Errorf("error field = %v, want boom", errEntry.ContextMap()["error"])
	}
}

func TestContextLogger_MergeFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core)).WithFields(Fields{"component": "pipeline", "stage": "INIT"})

	logger.Debug(context.Background(), "merged", Fields{"stage": "SORT"})

	entry := logs.All()[0].ContextMap()
	if entry["component"] != "pipeline" {
		t.Errorf("component = %v, want pipeline", entry["component"])
	}
	if entry["stage"] != "SORT" {
		t.Errorf("stage = %v, want call-site field to win", entry["stage"])
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}
}
