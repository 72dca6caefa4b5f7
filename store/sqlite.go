package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/patchpilot/patchpilot/review"
)

// SQLiteStore is a SQLite implementation of Store.
//
// It keeps run history and feedback in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process deployments
//   - Local runs that need history across invocations
//
// Uses WAL mode for concurrent reads and auto-migrates its schema on open.
//
// Schema:
//   - analysis_runs: one row per completed run (terminal state as JSON)
//   - feedback_events: raw reviewer feedback payloads keyed by PR ID
//   - issue_severity: learned severity rank per issue type
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// NewSQLiteStore creates a new SQLite-backed store.
//
// The path parameter specifies the database file location; ":memory:" gives
// an in-memory database whose data is lost on close.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	runsTable := `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL UNIQUE,
			repo_name TEXT NOT NULL,
			pr_id TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, runsTable); err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_runs_repo ON analysis_runs(repo_name, id)"); err != nil {
		return fmt.Errorf("failed to create idx_runs_repo: %w", err)
	}

	feedbackTable := `
		CREATE TABLE IF NOT EXISTS feedback_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pr_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, feedbackTable); err != nil {
		return fmt.Errorf("failed to create feedback_events table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_feedback_pr ON feedback_events(pr_id)"); err != nil {
		return fmt.Errorf("failed to create idx_feedback_pr: %w", err)
	}

	severityTable := `
		CREATE TABLE IF NOT EXISTS issue_severity (
			issue_type TEXT NOT NULL PRIMARY KEY,
			rank INTEGER NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, severityTable); err != nil {
		return fmt.Errorf("failed to create issue_severity table: %w", err)
	}

	return nil
}

// SaveRun persists the terminal state of a run (implements RunStore).
//
// Re-saving the same run ID replaces the stored state.
func (s *SQLiteStore) SaveRun(ctx context.Context, runID string, state *review.WorkflowState) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (run_id, repo_name, pr_id, state)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			repo_name = excluded.repo_name,
			pr_id = excluded.pr_id,
			state = excluded.state
	`
	if _, err := s.db.ExecContext(ctx, query, runID, state.Context.RepoName, state.Context.PRID, string(raw)); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// LoadRun retrieves a persisted run (implements RunStore).
func (s *SQLiteStore) LoadRun(ctx context.Context, runID string) (*review.WorkflowState, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM analysis_runs WHERE run_id = ?", runID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	var state review.WorkflowState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// RecentFindings returns security findings from the repository's latest runs,
// newest first (implements RunStore).
func (s *SQLiteStore) RecentFindings(ctx context.Context, repo string, limit int) ([]review.SecurityFinding, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT state
		FROM analysis_runs
		WHERE repo_name = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, repo, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []review.SecurityFinding
	for rows.Next() && len(findings) < limit {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		var state review.WorkflowState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state: %w", err)
		}
		for _, f := range state.SecurityResults {
			findings = append(findings, f)
			if len(findings) == limit {
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return findings, nil
}

// SaveFeedback persists a raw feedback payload (implements FeedbackStore).
func (s *SQLiteStore) SaveFeedback(ctx context.Context, prID string, payload []byte) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback_events (pr_id, payload) VALUES (?, ?)",
		prID, string(payload)); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// SeverityRank returns the learned rank for an issue type (implements
// FeedbackStore).
func (s *SQLiteStore) SeverityRank(ctx context.Context, issueType string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	var rank int
	err := s.db.QueryRowContext(ctx, "SELECT rank FROM issue_severity WHERE issue_type = ?", issueType).Scan(&rank)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load severity rank: %w", err)
	}
	return rank, nil
}

// SetSeverityRank records the rank for an issue type (implements
// FeedbackStore).
func (s *SQLiteStore) SetSeverityRank(ctx context.Context, issueType string, rank int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	query := `
		INSERT INTO issue_severity (issue_type, rank)
		VALUES (?, ?)
		ON CONFLICT(issue_type) DO UPDATE SET
			rank = excluded.rank,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, issueType, rank); err != nil {
		return fmt.Errorf("failed to set severity rank: %w", err)
	}
	return nil
}

// Close closes the database connection. Double-close is a no-op.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.PingContext(ctx)
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

func (s *SQLiteStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
