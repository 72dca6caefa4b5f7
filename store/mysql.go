package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/patchpilot/patchpilot/review"
)

// MySQLStore is a MySQL/MariaDB implementation of Store.
//
// Designed for shared deployments where multiple workers analyze pull
// requests against the same history, and for audit trails that must survive
// process restarts. Uses connection pooling; schema auto-migrates on open.
//
// Schema:
//   - analysis_runs: one row per completed run (terminal state as JSON)
//   - feedback_events: raw reviewer feedback payloads keyed by PR ID
//   - issue_severity: learned severity rank per issue type
type MySQLStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewMySQLStore creates a new MySQL-backed store.
//
// The DSN (Data Source Name) format is:
//
//	[username[:password]@][protocol[(address)]]/dbname[?param1=value1&...]
//
// Never hardcode credentials; read the DSN from the environment or config.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	m := &MySQLStore{db: db}
	if err := m.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return m, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	runsTable := `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL UNIQUE,
			repo_name VARCHAR(255) NOT NULL,
			pr_id VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_runs_repo (repo_name, id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, runsTable); err != nil {
		return fmt.Errorf("failed to create analysis_runs table: %w", err)
	}

	feedbackTable := `
		CREATE TABLE IF NOT EXISTS feedback_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			pr_id VARCHAR(255) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_feedback_pr (pr_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, feedbackTable); err != nil {
		return fmt.Errorf("failed to create feedback_events table: %w", err)
	}

	severityTable := `
		CREATE TABLE IF NOT EXISTS issue_severity (
			issue_type VARCHAR(255) NOT NULL PRIMARY KEY,
			severity_rank INT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, severityTable); err != nil {
		return fmt.Errorf("failed to create issue_severity table: %w", err)
	}

	return nil
}

// SaveRun persists the terminal state of a run (implements RunStore).
//
// Re-saving the same run ID replaces the stored state.
func (m *MySQLStore) SaveRun(ctx context.Context, runID string, state *review.WorkflowState) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	query := `
		INSERT INTO analysis_runs (run_id, repo_name, pr_id, state)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			repo_name = VALUES(repo_name),
			pr_id = VALUES(pr_id),
			state = VALUES(state)
	`
	if _, err := m.db.ExecContext(ctx, query, runID, state.Context.RepoName, state.Context.PRID, string(raw)); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// LoadRun retrieves a persisted run (implements RunStore).
func (m *MySQLStore) LoadRun(ctx context.Context, runID string) (*review.WorkflowState, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var raw string
	err := m.db.QueryRowContext(ctx, "SELECT state FROM analysis_runs WHERE run_id = ?", runID).Scan(&raw)
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
func (m *MySQLStore) RecentFindings(ctx context.Context, repo string, limit int) ([]review.SecurityFinding, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	query := `
		SELECT state
		FROM analysis_runs
		WHERE repo_name = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := m.db.QueryContext(ctx, query, repo, limit)
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
func (m *MySQLStore) SaveFeedback(ctx context.Context, prID string, payload []byte) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	if _, err := m.db.ExecContext(ctx,
		"INSERT INTO feedback_events (pr_id, payload) VALUES (?, ?)",
		prID, string(payload)); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// SeverityRank returns the learned rank for an issue type (implements
// FeedbackStore).
func (m *MySQLStore) SeverityRank(ctx context.Context, issueType string) (int, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	var rank int
	err := m.db.QueryRowContext(ctx,
		"SELECT severity_rank FROM issue_severity WHERE issue_type = ?", issueType).Scan(&rank)
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
func (m *MySQLStore) SetSeverityRank(ctx context.Context, issueType string, rank int) error {
	if err := m.checkOpen(); err != nil {
		return err
	}

	query := `
		INSERT INTO issue_severity (issue_type, severity_rank)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE severity_rank = VALUES(severity_rank)
	`
	if _, err := m.db.ExecContext(ctx, query, issueType, rank); err != nil {
		return fmt.Errorf("failed to set severity rank: %w", err)
	}
	return nil
}

// Close closes the database connection. Double-close is a no-op.
func (m *MySQLStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.db.Close()
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	return m.db.PingContext(ctx)
}

func (m *MySQLStore) checkOpen() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}
