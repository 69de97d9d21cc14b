package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

// admissionLockKey serializes capacity checks so two concurrent submissions
// cannot both pass a stale queue-length read.
const admissionLockKey = 0x626f7765 // "bowe"

// Postgres persists job records in PostgreSQL.
type Postgres struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *sqlx.DB, logger *slog.Logger) *Postgres {
	return &Postgres{db: db, logger: logger}
}

var _ Store = (*Postgres)(nil)

func (s *Postgres) Enqueue(ctx context.Context, job *jobs.Job, maxQueued int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin admission tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, admissionLockKey); err != nil {
		return fmt.Errorf("failed to take admission lock: %w", err)
	}

	var queued int
	if err := tx.GetContext(ctx, &queued,
		`SELECT count(*) FROM jobs WHERE status = $1`, jobs.StatusQueued); err != nil {
		return fmt.Errorf("failed to count queued jobs: %w", err)
	}

	if queued >= maxQueued {
		return jobs.ErrQueueFull
	}

	query := `
		INSERT INTO jobs (
			job_id, status, status_detail, style, aspect_ratio,
			image_count, image_dir, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, query,
		job.ID,
		jobs.StatusQueued,
		"",
		job.Style,
		job.AspectRatio,
		job.ImageCount,
		job.ImageDir,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admission tx: %w", err)
	}

	return nil
}

func (s *Postgres) Get(ctx context.Context, jobID string) (*jobs.Job, error) {
	query := `
		SELECT job_id, status, status_detail, style, aspect_ratio,
		       image_count, image_dir, output_url, error_message,
		       created_at, expires_at
		FROM jobs
		WHERE job_id = $1
	`

	var job jobs.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if err == sql.ErrNoRows {
			return nil, jobs.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (s *Postgres) Claim(ctx context.Context, jobID, detail string) (*jobs.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    status_detail = $2
		WHERE job_id = $3
		  AND status = $4
		RETURNING job_id, status, status_detail, style, aspect_ratio,
		          image_count, image_dir, output_url, error_message,
		          created_at, expires_at
	`

	var job jobs.Job
	err := s.db.GetContext(ctx, &job, query, jobs.StatusProcessing, detail, jobID, jobs.StatusQueued)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
			)
			return nil, jobs.ErrAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	return &job, nil
}

func (s *Postgres) SetStatusDetail(ctx context.Context, jobID, detail string) error {
	query := `
		UPDATE jobs
		SET status_detail = $1
		WHERE job_id = $2 AND status = $3
	`
	if _, err := s.db.ExecContext(ctx, query, detail, jobID, jobs.StatusProcessing); err != nil {
		return fmt.Errorf("failed to update status detail: %w", err)
	}
	return nil
}

func (s *Postgres) Complete(ctx context.Context, jobID, outputURL string, expiresAt time.Time) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    status_detail = '',
		    output_url = $2,
		    expires_at = $3
		WHERE job_id = $4 AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		jobs.StatusCompleted, outputURL, expiresAt, jobID, jobs.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return s.checkTransition(result, jobID, jobs.StatusCompleted)
}

func (s *Postgres) Fail(ctx context.Context, jobID, message string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    status_detail = '',
		    error_message = $2
		WHERE job_id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		jobs.StatusFailed, message, jobID, jobs.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}

	return s.checkTransition(result, jobID, jobs.StatusFailed)
}

func (s *Postgres) checkTransition(result sql.Result, jobID, status string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return jobs.ErrNotTerminal
	}

	s.logger.Info("Job status committed",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)
	return nil
}

func (s *Postgres) Delete(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

func (s *Postgres) QueuedCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT count(*) FROM jobs WHERE status = $1`, jobs.StatusQueued)
	if err != nil {
		return 0, fmt.Errorf("failed to count queued jobs: %w", err)
	}
	return count, nil
}

func (s *Postgres) ListExpired(ctx context.Context, now time.Time, failedRetention time.Duration) ([]jobs.Job, error) {
	query := `
		SELECT job_id, status, status_detail, style, aspect_ratio,
		       image_count, image_dir, output_url, error_message,
		       created_at, expires_at
		FROM jobs
		WHERE (status = $1 AND expires_at <= $2)
		   OR (status = $3 AND created_at <= $4)
	`

	var expired []jobs.Job
	err := s.db.SelectContext(ctx, &expired, query,
		jobs.StatusCompleted, now,
		jobs.StatusFailed, now.Add(-failedRetention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired jobs: %w", err)
	}
	return expired, nil
}
