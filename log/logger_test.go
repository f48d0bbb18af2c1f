package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_RunContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(RunContext{RunID: "run-1", Collection: "assets"}, &buf)
	l.Info("phase started", map[string]any{"phase": "uploading_images"})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	e := lines[0]
	if e["run_id"] != "run-1" || e["collection"] != "assets" {
		t.Errorf("context fields = %v", e)
	}
	if e["level"] != "info" || e["message"] != "phase started" {
		t.Errorf("entry = %v", e)
	}
	fields, _ := e["fields"].(map[string]any)
	if fields["phase"] != "uploading_images" {
		t.Errorf("fields = %v", e["fields"])
	}
}

func TestLogger_DebugRequiresVerbose(t *testing.T) {
	var quiet, verbose bytes.Buffer
	NewLoggerWithWriter(RunContext{RunID: "r"}, &quiet).Debug("hidden", nil)
	NewLoggerWithWriter(RunContext{RunID: "r", Verbose: true}, &verbose).Debug("shown", nil)

	if quiet.Len() != 0 {
		t.Errorf("debug entry written without verbose: %s", quiet.String())
	}
	if !strings.Contains(verbose.String(), "shown") {
		t.Errorf("debug entry missing with verbose: %q", verbose.String())
	}
}

func TestLogger_OmitsEmptyCollection(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter(RunContext{RunID: "r"}, &buf).Sugar().Warnf("waiting %ds", 60)

	e := decodeLines(t, &buf)[0]
	if _, ok := e["collection"]; ok {
		t.Errorf("unexpected collection field: %v", e)
	}
	if e["message"] != "waiting 60s" {
		t.Errorf("message = %v", e["message"])
	}
}
