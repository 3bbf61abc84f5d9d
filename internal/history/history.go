// Package history keeps a cross-project record of finished runs in a
// SQLite database under the config root. The database is advisory: a
// missing or broken DB degrades to a stderr warning, never a failed run.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/louisboilard/autom8/internal/state"
)

// Store provides SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		branch TEXT,
		status TEXT NOT NULL,
		machine_state TEXT NOT NULL,
		started_at DATETIME,
		finished_at DATETIME,
		iterations INTEGER DEFAULT 0,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		cost_usd REAL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		time DATETIME,
		event TEXT NOT NULL,
		detail TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun upserts a terminal run state for a project.
func (s *Store) RecordRun(project string, rs *state.RunState) error {
	var inputTokens, outputTokens int
	var cost float64
	if rs.Usage != nil {
		inputTokens = rs.Usage.InputTokens
		outputTokens = rs.Usage.OutputTokens
		cost = rs.Usage.CostUSD
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, project, branch, status, machine_state,
		                   started_at, finished_at, iterations,
		                   input_tokens, output_tokens, cost_usd)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
		   status = excluded.status,
		   machine_state = excluded.machine_state,
		   finished_at = excluded.finished_at,
		   iterations = excluded.iterations,
		   input_tokens = excluded.input_tokens,
		   output_tokens = excluded.output_tokens,
		   cost_usd = excluded.cost_usd`,
		rs.RunID, project, rs.Branch, string(rs.Status), string(rs.MachineState),
		rs.StartedAt, rs.FinishedAt, rs.Iteration,
		inputTokens, outputTokens, cost,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AppendEvent records one event for a run.
func (s *Store) AppendEvent(runID, event, detail string) error {
	_, err := s.db.Exec(
		`INSERT INTO events (run_id, time, event, detail) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UTC(), event, detail,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RunRow is one row of the runs table for listings.
type RunRow struct {
	RunID        string
	Project      string
	Branch       string
	Status       string
	MachineState string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Iterations   int
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

// ListRuns returns the most recent runs, optionally filtered by project
// (empty = all projects).
func (s *Store) ListRuns(project string, limit int) ([]RunRow, error) {
	query := `SELECT run_id, project, COALESCE(branch, ''), status, machine_state,
	                 started_at, finished_at, iterations,
	                 input_tokens, output_tokens, cost_usd
	          FROM runs`
	args := []any{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		var finished sql.NullTime
		if err := rows.Scan(&r.RunID, &r.Project, &r.Branch, &r.Status, &r.MachineState,
			&r.StartedAt, &finished, &r.Iterations,
			&r.InputTokens, &r.OutputTokens, &r.CostUSD); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Projects returns the distinct project names present in the history.
func (s *Store) Projects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT project FROM runs ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
