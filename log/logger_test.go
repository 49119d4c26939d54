package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/pithecene-io/inquire/types"
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
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_RunContext(t *testing.T) {
	var buf bytes.Buffer
	parent := "run-000"
	l := NewLoggerWithWriter(&types.RunMeta{RunID: "run-001", LDS: "web", APIVersion: 2, Attempt: 2, ParentRunID: &parent}, &buf)

	l.Info("export started", map[string]any{"queries": 3})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["message"] != "export started" || entry["level"] != "info" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["run_id"] != "run-001" || entry["lds"] != "web" || entry["parent_run_id"] != "run-000" {
		t.Errorf("missing run context: %v", entry)
	}
	if entry["api_version"] != float64(2) || entry["attempt"] != float64(2) {
		t.Errorf("unexpected numeric context: %v", entry)
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp")
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["queries"] != float64(3) {
		t.Errorf("unexpected fields: %v", entry["fields"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(&types.RunMeta{RunID: "run-001", Attempt: 1}, &buf)

	q := l.With(map[string]any{"query": "DailyVisits", "execution_id": "e-1"})
	q.Warn("poll slow", nil)

	entry := decodeLines(t, &buf)[0]
	if entry["query"] != "DailyVisits" || entry["execution_id"] != "e-1" || entry["run_id"] != "run-001" {
		t.Errorf("expected scoped fields, got %v", entry)
	}
	if entry["level"] != "warn" {
		t.Errorf("expected warn level, got %v", entry["level"])
	}
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	l.Info("ignored", nil)
	l.Error("ignored", map[string]any{"a": 1})
	if l.With(map[string]any{"a": 1}) != nil {
		t.Error("expected nil derived logger")
	}
	if err := l.Sync(); err != nil {
		t.Errorf("sync: %v", err)
	}
	l.Sugar().Infof("ignored %d", 1)
}

func TestLogger_WithOutput(t *testing.T) {
	var first, second bytes.Buffer
	l := NewLoggerWithWriter(&types.RunMeta{RunID: "run-001", Attempt: 1}, &first)
	l.WithOutput(&second).Error("moved", nil)

	if first.Len() != 0 {
		t.Errorf("expected nothing on original writer, got %q", first.String())
	}
	entry := decodeLines(t, &second)[0]
	if entry["message"] != "moved" || entry["run_id"] != "run-001" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestSugaredLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(nil, &buf)
	l.Sugar().With("component", "cli").Infof("loaded %d configs", 2)

	entry := decodeLines(t, &buf)[0]
	if entry["message"] != "loaded 2 configs" || entry["component"] != "cli" {
		t.Errorf("unexpected entry %v", entry)
	}
}
