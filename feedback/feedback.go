// Package feedback records reviewer reactions to analysis findings and
// adjusts the learned severity rank of each issue type accordingly.
package feedback

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/patchpilot/patchpilot/emit"
	"github.com/patchpilot/patchpilot/review"
	"github.com/patchpilot/patchpilot/store"
)

// Feedback is one reviewer's reaction to the findings of a pull request
// analysis. Accepted issues were confirmed real by the reviewer; rejected
// issues were dismissed as noise.
type Feedback struct {
	PRID           string         `json:"pr_id"`
	AcceptedIssues []string       `json:"accepted_issues"`
	RejectedIssues []string       `json:"rejected_issues"`
	PRContext      map[string]any `json:"pr_context,omitempty"`
}

// Recorder persists feedback and applies the severity adjustment rules.
//
// Accepting an issue type lowers its learned rank by one (floor 1, low);
// rejecting raises it by one (cap 4, critical). Issue types with no prior
// feedback start from medium. Record never returns an error: persistence
// failures are emitted as feedback_error events and reported as false.
type Recorder struct {
	store   store.FeedbackStore
	emitter emit.Emitter
}

// NewRecorder creates a Recorder. A nil emitter falls back to NullEmitter.
func NewRecorder(st store.FeedbackStore, em emit.Emitter) *Recorder {
	if em == nil {
		em = emit.NewNullEmitter()
	}
	return &Recorder{store: st, emitter: em}
}

// Record persists the feedback payload and adjusts severity ranks for every
// referenced issue type. Returns true only when every write succeeded.
func (r *Recorder) Record(ctx context.Context, fb Feedback) bool {
	ok := true
	fail := func(err error) {
		ok = false
		r.emitter.Emit(emit.Event{Msg: "feedback_error", Meta: map[string]any{
			"pr_id": fb.PRID,
			"error": err.Error(),
		}})
	}

	payload, err := json.Marshal(fb)
	if err != nil {
		fail(err)
		return false
	}
	if err := r.store.SaveFeedback(ctx, fb.PRID, payload); err != nil {
		fail(err)
	}

	for _, issueType := range fb.AcceptedIssues {
		if err := r.adjust(ctx, issueType, -1); err != nil {
			fail(err)
		}
	}
	for _, issueType := range fb.RejectedIssues {
		if err := r.adjust(ctx, issueType, +1); err != nil {
			fail(err)
		}
	}
	return ok
}

// LearnedSeverity reports the current learned severity for an issue type.
// Issue types with no recorded feedback report medium.
func (r *Recorder) LearnedSeverity(ctx context.Context, issueType string) (review.Severity, error) {
	rank, err := r.store.SeverityRank(ctx, issueType)
	if errors.Is(err, store.ErrNotFound) {
		return review.SeverityMedium, nil
	}
	if err != nil {
		return review.SeverityMedium, err
	}
	return review.SeverityFromRank(rank), nil
}

func (r *Recorder) adjust(ctx context.Context, issueType string, delta int) error {
	rank, err := r.store.SeverityRank(ctx, issueType)
	if errors.Is(err, store.ErrNotFound) {
		rank = review.SeverityMedium.Rank()
	} else if err != nil {
		return err
	}

	rank += delta
	if rank < review.SeverityLow.Rank() {
		rank = review.SeverityLow.Rank()
	}
	if rank > review.SeverityCritical.Rank() {
		rank = review.SeverityCritical.Rank()
	}
	return r.store.SetSeverityRank(ctx, issueType, rank)
}
