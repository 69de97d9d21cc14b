package store

import (
	"context"
	"time"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

// Store is the job record store shared by admission, status queries, and the
// worker pipeline. Implementations must make every status transition atomic
// per job: a reader never observes a half-written transition, and a terminal
// state is committed exactly once.
type Store interface {
	// Enqueue creates a queued job record iff fewer than maxQueued jobs are
	// currently queued. The capacity check and the insert are a single
	// atomic step; on jobs.ErrQueueFull no record exists.
	Enqueue(ctx context.Context, job *jobs.Job, maxQueued int) error

	// Get returns the job or jobs.ErrJobNotFound.
	Get(ctx context.Context, jobID string) (*jobs.Job, error)

	// Claim moves a job from queued to processing with the given initial
	// status detail. At most one concurrent caller succeeds; the rest get
	// jobs.ErrAlreadyClaimed.
	Claim(ctx context.Context, jobID, detail string) (*jobs.Job, error)

	// SetStatusDetail updates the progress string of a processing job.
	SetStatusDetail(ctx context.Context, jobID, detail string) error

	// Complete commits the completed state together with the output URL and
	// expiry, atomically. Fails with jobs.ErrNotTerminal unless the job is
	// processing.
	Complete(ctx context.Context, jobID, outputURL string, expiresAt time.Time) error

	// Fail commits the failed state with a descriptive error. Fails with
	// jobs.ErrNotTerminal unless the job is processing.
	Fail(ctx context.Context, jobID, message string) error

	// Delete removes the job record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, jobID string) error

	// QueuedCount reports the current queue length.
	QueuedCount(ctx context.Context) (int, error)

	// ListExpired returns completed jobs whose expiry has passed and failed
	// jobs older than failedRetention, for the sweeper to collect.
	ListExpired(ctx context.Context, now time.Time, failedRetention time.Duration) ([]jobs.Job, error)
}
