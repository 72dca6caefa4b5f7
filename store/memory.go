package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/patchpilot/patchpilot/review"
)

// MemoryStore is an in-memory implementation of Store.
//
// Designed for tests and single-shot CLI runs where persistence across
// processes is not needed. States are JSON round-tripped on save and load so
// callers never share slices or maps with the store, matching the isolation
// the SQL backends provide.
//
// Thread-safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     []runRecord
	byRunID  map[string]int
	feedback map[string][][]byte
	ranks    map[string]int
}

type runRecord struct {
	runID string
	repo  string
	state []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byRunID:  make(map[string]int),
		feedback: make(map[string][][]byte),
		ranks:    make(map[string]int),
	}
}

// SaveRun persists the terminal state of a run (implements RunStore).
func (m *MemoryStore) SaveRun(_ context.Context, runID string, state *review.WorkflowState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.byRunID[runID]; ok {
		m.runs[i].state = raw
		return nil
	}
	m.byRunID[runID] = len(m.runs)
	m.runs = append(m.runs, runRecord{runID: runID, repo: state.Context.RepoName, state: raw})
	return nil
}

// LoadRun retrieves a persisted run (implements RunStore).
func (m *MemoryStore) LoadRun(_ context.Context, runID string) (*review.WorkflowState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byRunID[runID]
	if !ok {
		return nil, ErrNotFound
	}
	var state review.WorkflowState
	if err := json.Unmarshal(m.runs[i].state, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// RecentFindings returns security findings from the repository's latest runs,
// newest first (implements RunStore).
func (m *MemoryStore) RecentFindings(_ context.Context, repo string, limit int) ([]review.SecurityFinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var findings []review.SecurityFinding
	for i := len(m.runs) - 1; i >= 0 && len(findings) < limit; i-- {
		if m.runs[i].repo != repo {
			continue
		}
		var state review.WorkflowState
		if err := json.Unmarshal(m.runs[i].state, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
		for _, f := range state.SecurityResults {
			findings = append(findings, f)
			if len(findings) == limit {
				break
			}
		}
	}
	return findings, nil
}

// SaveFeedback persists a raw feedback payload (implements FeedbackStore).
func (m *MemoryStore) SaveFeedback(_ context.Context, prID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.feedback[prID] = append(m.feedback[prID], cp)
	return nil
}

// SeverityRank returns the learned rank for an issue type (implements
// FeedbackStore).
func (m *MemoryStore) SeverityRank(_ context.Context, issueType string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rank, ok := m.ranks[issueType]
	if !ok {
		return 0, ErrNotFound
	}
	return rank, nil
}

// SetSeverityRank records the rank for an issue type (implements
// FeedbackStore).
func (m *MemoryStore) SetSeverityRank(_ context.Context, issueType string, rank int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ranks[issueType] = rank
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
