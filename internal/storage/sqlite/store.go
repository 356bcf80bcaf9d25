// Package sqlite implements the durable store behind the in-memory engine:
// jobs survive restarts and execution history is append-only. It uses
// modernc.org/sqlite (pure Go, no CGO) with WAL mode.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chime/internal/history"
	"chime/internal/job"
	"chime/internal/schedule"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// defaultBusyTimeout is the SQLite busy handler timeout in milliseconds.
const defaultBusyTimeout = 5000

// Store is a SQLite-backed durable store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. The database uses
// WAL mode, a 5 s busy timeout, and a single connection (SQLite serialises
// writes). The schema is migrated automatically.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveJob inserts or replaces the job row.
func (s *Store) SaveJob(ctx context.Context, j job.Job) error {
	rule, err := schedule.Encode(j.Rule)
	if err != nil {
		return fmt.Errorf("sqlite: save job %s: %w", j.ID, err)
	}

	lastRun := ""
	if !j.LastRun.IsZero() {
		lastRun = j.LastRun.UTC().Format(time.RFC3339Nano)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO jobs (id, name, recurrence, active, next_run, last_run, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Name, string(rule), boolToInt(j.Active),
		j.NextRun.UTC().Format(time.RFC3339Nano), lastRun,
		j.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save job %s: %w", j.ID, err)
	}
	return nil
}

// DeleteJob removes the job row. Deleting an absent row is a no-op.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id); err != nil {
		return fmt.Errorf("sqlite: delete job %s: %w", id, err)
	}
	return nil
}

// LoadJobs reads all job rows, oldest-created first, so re-inserting them
// into the in-memory store reproduces the original insertion order.
func (s *Store) LoadJobs(ctx context.Context) ([]job.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, recurrence, active, next_run, last_run, created_at FROM jobs ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("sqlite: load jobs: %w", err)
	}
	defer rows.Close()

	var jobs []job.Job
	for rows.Next() {
		var (
			j         job.Job
			rule      string
			active    int
			nextRun   string
			lastRun   string
			createdAt string
		)
		if err := rows.Scan(&j.ID, &j.Name, &rule, &active, &nextRun, &lastRun, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan job: %w", err)
		}

		j.Rule, err = schedule.Decode([]byte(rule))
		if err != nil {
			return nil, fmt.Errorf("sqlite: job %s: %w", j.ID, err)
		}
		j.Active = active != 0
		if j.NextRun, err = parseTime(nextRun); err != nil {
			return nil, fmt.Errorf("sqlite: job %s next_run: %w", j.ID, err)
		}
		if j.LastRun, err = parseTime(lastRun); err != nil {
			return nil, fmt.Errorf("sqlite: job %s last_run: %w", j.ID, err)
		}
		if j.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: job %s created_at: %w", j.ID, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// AppendExecution appends one execution row. Rows are never updated.
func (s *Store) AppendExecution(ctx context.Context, r history.Record) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO executions (job_id, job_name, ok, message, run_at) VALUES (?, ?, ?, ?, ?)",
		r.JobID, r.JobName, boolToInt(r.OK), r.Message, r.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append execution for %s: %w", r.JobID, err)
	}
	return nil
}

// LoadExecutions returns up to limit most recent executions, newest-first.
// Used to re-seed the in-memory execution log at startup.
func (s *Store) LoadExecutions(ctx context.Context, limit int) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT job_id, job_name, ok, message, run_at FROM executions ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load executions: %w", err)
	}
	defer rows.Close()

	var records []history.Record
	for rows.Next() {
		var (
			r     history.Record
			ok    int
			runAt string
		)
		if err := rows.Scan(&r.JobID, &r.JobName, &ok, &r.Message, &runAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan execution: %w", err)
		}
		r.OK = ok != 0
		if r.Time, err = parseTime(runAt); err != nil {
			return nil, fmt.Errorf("sqlite: execution run_at: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PruneExecutions deletes execution rows older than the cutoff and returns
// the number removed. Called by the maintenance scheduler.
func (s *Store) PruneExecutions(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM executions WHERE run_at < ?", olderThan.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune executions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune executions: %w", err)
	}
	return n, nil
}

// Checkpoint truncates the WAL. Called by the maintenance scheduler.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("sqlite: wal checkpoint: %w", err)
	}
	return nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
