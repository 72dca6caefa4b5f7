// Package emit provides the observability events produced by the analysis
// workflow and the pluggable emitters that consume them.
package emit

// Event is a single observability event from an analysis run.
//
// The workflow emits events at run and node boundaries:
//
//	run_start, node_start, node_end, short_circuit,
//	run_complete, run_timeout, run_error, store_error, feedback_error
type Event struct {
	// RunID identifies the analysis run that emitted this event.
	RunID string

	// Step is the sequential step number within the run (1-indexed).
	// Zero for run-level events.
	Step int

	// NodeID names the workflow node that emitted this event.
	// Empty for run-level events.
	NodeID string

	// Msg is the event name.
	Msg string

	// Meta carries additional structured data. Common keys: "duration_ms",
	// "error", "findings", "decision", "risk_level".
	Meta map[string]any
}

// Emitter receives events from the workflow.
//
// Implementations must be safe for concurrent use, must not block the
// workflow, and must not panic; emit failures are handled internally.
type Emitter interface {
	Emit(event Event)
}

// NullEmitter discards all events. Useful when observability output is not
// wanted, and as the default when no emitter is configured.
type NullEmitter struct{}

// NewNullEmitter returns an emitter that drops every event.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

// multiEmitter fans each event out to several emitters in order.
type multiEmitter []Emitter

// Multi combines emitters into one. Nil entries are skipped, so callers can
// pass optional emitters without checking.
func Multi(emitters ...Emitter) Emitter {
	combined := make(multiEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			combined = append(combined, e)
		}
	}
	if len(combined) == 1 {
		return combined[0]
	}
	return combined
}

// Emit forwards the event to every emitter.
func (m multiEmitter) Emit(event Event) {
	for _, e := range m {
		e.Emit(event)
	}
}
