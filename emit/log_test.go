package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitterText(t *testing.T) {
	var buf bytes.Buffer
	em := NewLogEmitter(&buf, false)

	em.Emit(Event{
		RunID:  "run-001",
		Step:   2,
		NodeID: "security_analysis",
		Msg:    "node_end",
		Meta:   map[string]any{"duration_ms": int64(12)},
	})

	got := buf.String()
	for _, want := range []string{"[node_end]", "runID=run-001", "step=2", "nodeID=security_analysis", `"duration_ms":12`} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestLogEmitterJSON(t *testing.T) {
	var buf bytes.Buffer
	em := NewLogEmitter(&buf, true)

	em.Emit(Event{RunID: "run-001", Msg: "run_start"})
	em.Emit(Event{RunID: "run-001", Step: 1, NodeID: "make_decision", Msg: "node_start"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d is not JSON: %v", i, err)
		}
		if decoded["runID"] != "run-001" {
			t.Errorf("line %d runID = %v", i, decoded["runID"])
		}
	}
}

func TestNullEmitter(t *testing.T) {
	// Must not panic and must accept any event shape.
	NewNullEmitter().Emit(Event{Msg: "run_complete", Meta: map[string]any{"x": 1}})
}
