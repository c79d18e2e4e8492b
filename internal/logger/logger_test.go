package logger

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "hello", limit: 0, expect: ""},
		{name: "shorter than limit", input: "hello", limit: 10, expect: "hello"},
		{name: "truncates runes", input: "héllo wörld", limit: 5, expect: "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestProfileFields(t *testing.T) {
	id := uuid.New()

	fields := ProfileFields(id, "candidate")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != FieldProfileID || fields[0].String != id.String() {
		t.Fatalf("unexpected id field: %+v", fields[0])
	}

	if got := ProfileFields(id, ""); len(got) != 1 {
		t.Fatalf("expected kind to be omitted, got %d fields", len(got))
	}
}

func TestWithModel(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	WithModel(zap.New(core), "gemini-embedding-001").Info("embedded")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()[FieldModel]; got != "gemini-embedding-001" {
		t.Fatalf("unexpected model field: %v", got)
	}

	// nil logger falls back to a no-op logger
	WithModel(nil, "m").Info("ignored")
}
