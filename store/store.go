// Package store persists analysis runs and reviewer feedback.
//
// Three implementations share the same interfaces: an in-memory store for
// tests and single-shot CLI runs, a SQLite store for local persistence, and a
// MySQL store for shared deployments.
package store

import (
	"context"
	"errors"

	"github.com/patchpilot/patchpilot/review"
)

// ErrNotFound is returned when a requested run ID or issue type does not exist.
var ErrNotFound = errors.New("not found")

// RunStore persists terminal workflow states.
//
// Runs are append-only: one row per completed analysis, keyed by run ID.
// RecentFindings reads back the security findings of a repository's latest
// runs so callers can seed AnalysisContext.PreviousIssues.
type RunStore interface {
	// SaveRun persists the terminal state of a completed run.
	SaveRun(ctx context.Context, runID string, state *review.WorkflowState) error

	// LoadRun retrieves a persisted run. Returns ErrNotFound if the run ID
	// does not exist.
	LoadRun(ctx context.Context, runID string) (*review.WorkflowState, error)

	// RecentFindings returns security findings from the repository's most
	// recent runs, newest run first, capped at limit findings. An unknown
	// repository yields an empty slice, not an error.
	RecentFindings(ctx context.Context, repo string, limit int) ([]review.SecurityFinding, error)
}

// FeedbackStore persists reviewer feedback and the learned severity ranks it
// drives. The store holds raw ranks only; the adjustment rules live in the
// feedback package.
type FeedbackStore interface {
	// SaveFeedback persists a raw feedback payload keyed by PR ID.
	SaveFeedback(ctx context.Context, prID string, payload []byte) error

	// SeverityRank returns the learned rank for an issue type on the 1-4
	// scale. Returns ErrNotFound for issue types with no recorded feedback.
	SeverityRank(ctx context.Context, issueType string) (int, error)

	// SetSeverityRank records the rank for an issue type, creating or
	// replacing the entry.
	SetSeverityRank(ctx context.Context, issueType string, rank int) error
}

// Store combines run history and feedback persistence behind one handle.
type Store interface {
	RunStore
	FeedbackStore

	// Close releases the store's resources. After Close, all operations
	// return an error. Double-close is a no-op.
	Close() error
}
