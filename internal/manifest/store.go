// Package manifest records pipeline runs and the artifacts they produced
// in a SQLite database next to the outputs, so a collaborator can see what
// was generated when, from which stage, and whether the run completed.
package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Store manages the run manifest database.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one recorded pipeline execution.
type Run struct {
	ID          string
	Name        string
	Status      string
	StartedAt   time.Time
	FinishedAt  time.Time
	FailedStage string
	FailedInput string
	Error       string
}

// Artifact is one persisted dataset, result or figure.
type Artifact struct {
	RunID     string
	Name      string
	Kind      string // dataset, result, figure, list
	Stage     string
	Path      string
	CreatedAt time.Time
}

// Open creates or opens the manifest database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating manifest directory: %w", err)
	}
	path := filepath.Join(dir, "degpipe.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing manifest schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		failed_stage TEXT,
		failed_input TEXT,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		stage TEXT NOT NULL,
		path TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records a run in the running state.
func (s *Store) BeginRun(id, name string, started time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, name, status, started_at) VALUES (?, ?, ?, ?)`,
		id, name, StatusRunning, started.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished successfully.
func (s *Store) CompleteRun(id string, finished time.Time) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		StatusCompleted, finished.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("recording run completion: %w", err)
	}
	return nil
}

// FailRun marks a run as failed, keeping the stage and input that caused
// the halt.
func (s *Store) FailRun(id, stage, input, errMsg string, finished time.Time) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, finished_at = ?, failed_stage = ?, failed_input = ?, error = ? WHERE id = ?`,
		StatusFailed, finished.UTC().Format(time.RFC3339Nano), stage, input, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("recording run failure: %w", err)
	}
	return nil
}

// AddArtifact records one persisted artifact for a run.
func (s *Store) AddArtifact(a Artifact) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO artifacts (run_id, name, kind, stage, path, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Name, a.Kind, a.Stage, a.Path, created.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording artifact %s: %w", a.Name, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, name, status, started_at,
		        COALESCE(finished_at, ''), COALESCE(failed_stage, ''),
		        COALESCE(failed_input, ''), COALESCE(error, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Name, &r.Status, &started,
			&finished, &r.FailedStage, &r.FailedInput, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Artifacts returns the artifacts of one run in insertion order.
func (s *Store) Artifacts(runID string) ([]Artifact, error) {
	rows, err := s.db.Query(
		`SELECT run_id, name, kind, stage, path, created_at
		 FROM artifacts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		var created string
		if err := rows.Scan(&a.RunID, &a.Name, &a.Kind, &a.Stage, &a.Path, &created); err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
