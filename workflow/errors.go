// Package workflow implements the analysis orchestrator: an explicit state
// machine that fans the analyzer roles out in parallel, merges their results
// into a single WorkflowState under a single-writer rule, routes around
// enrichment when a critical finding short-circuits it, and derives the final
// decision under a global deadline.
package workflow

import "errors"

// ErrAnalysisTimeout is returned when a run exceeds its wall-clock budget.
// It is distinct from node-level failures so callers can retry or alert
// differently. The message text is part of the caller contract.
var ErrAnalysisTimeout = errors.New("Analysis timed out after 2 minutes")

// EngineError is a fatal orchestration failure: a node-level error that
// aborts the whole run. Per-file analyzer errors never become EngineErrors;
// they accumulate on the state instead.
type EngineError struct {
	// NodeID identifies the node that failed, when known.
	NodeID NodeID

	// Message is the human-readable description.
	Message string

	// Code is a machine-readable code for programmatic handling.
	Code string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.NodeID != "" {
		return "node " + string(e.NodeID) + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}
