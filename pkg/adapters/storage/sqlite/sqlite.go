package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// JobStore implements ports.JobStore on a single SQLite file. The job is
// stored as a JSON document; status and request are duplicated into
// columns for listing.
type JobStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewJobStore opens (creating if needed) the database at dbPath and runs
// migrations.
func NewJobStore(dbPath string, logger *zap.Logger) (*JobStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Minute * 5)

	s := &JobStore{db: db, logger: logger}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

func (s *JobStore) runMigrations() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id          TEXT PRIMARY KEY,
		request     TEXT NOT NULL,
		status      TEXT NOT NULL,          -- pending|running|paused|succeeded|failed
		wait_for    TEXT,
		document    TEXT NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status, updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save creates or replaces a job
func (s *JobStore) Save(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO jobs (id, request, status, wait_for, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	wait_for = excluded.wait_for,
	document = excluded.document,
	updated_at = excluded.updated_at`,
		job.ID, job.Request, string(job.State.Status), nullableString(job.State.WaitFor), string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	s.logger.Debug("job saved",
		zap.String("job_id", job.ID),
		zap.String("status", string(job.State.Status)))

	return nil
}

// Load retrieves a job
func (s *JobStore) Load(ctx context.Context, jobID string) (*domain.Job, error) {
	var document string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM jobs WHERE id = ?`, jobID).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal([]byte(document), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// Delete removes a job
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Exists checks if a job is stored
func (s *JobStore) Exists(ctx context.Context, jobID string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE id = ?`, jobID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

// List returns all stored job IDs, oldest first
func (s *JobStore) List(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM jobs ORDER BY created_at ASC, id ASC`)
}

// ListByStatus returns the IDs of jobs with the given status, oldest first
func (s *JobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM jobs WHERE status = ? ORDER BY created_at ASC, id ASC`, string(status))
}

func (s *JobStore) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database
func (s *JobStore) Close() error {
	return s.db.Close()
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
