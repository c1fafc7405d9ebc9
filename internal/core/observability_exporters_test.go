package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatal("empty name not replaced with a generated one")
	}
	ctx := context.Background()

	rec.Observe(ctx, "add_pattern", true, 20*time.Millisecond)
	rec.Observe(ctx, "add_pattern", true, 30*time.Millisecond)
	rec.Observe(ctx, "add_pattern", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["add_pattern"]; got != 55 {
		t.Fatalf("duration total = %v, want 55", got)
	}
	if got := snap.Results["add_pattern"]["success"]; got != 2 {
		t.Fatalf("success count = %d, want 2", got)
	}
	if got := snap.Results["add_pattern"]["error"]; got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatal("empty operation recorded")
	}

	// snapshot is a copy
	snap.DurationsMS["add_pattern"] = 0
	if rec.Snapshot().DurationsMS["add_pattern"] != 55 {
		t.Fatal("snapshot shares state with the recorder")
	}
}

func TestJSONTracerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := context.Background()

	_, span := tracer.Start(ctx, "export_json")
	span.End(nil)
	_, span = tracer.Start(ctx, "import_json")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("entries = %+v", entries)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("emitted lines = %d, want 2", len(lines))
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode emitted span: %v", err)
	}
	if decoded.Operation != "import_json" {
		t.Fatalf("operation = %q", decoded.Operation)
	}
}
