package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/montrealks/bowerbirder/internal/jobs"
	"github.com/montrealks/bowerbirder/internal/scratch"
)

// runSweeper periodically deletes expired completed jobs (record plus
// artifact) and failed jobs past their diagnostic retention. The status
// query path already expires on read; the sweep bounds storage growth for
// jobs nobody polls again.
func (w *Worker) runSweeper(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("Expiry sweeper started",
		slog.Duration("interval", w.sweepInterval),
	)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepExpired(ctx)
		}
	}
}

// sweepExpired collects one batch of expired jobs. Failed jobs are kept for
// twice the output TTL before collection.
func (w *Worker) sweepExpired(ctx context.Context) {
	now := time.Now().UTC()
	expired, err := w.store.ListExpired(ctx, now, 2*w.outputExpiry)
	if err != nil {
		w.logger.Error("Failed to list expired jobs",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, job := range expired {
		if job.Status == jobs.StatusCompleted {
			if err := w.artifacts.Delete(ctx, job.ID); err != nil {
				w.logger.Error("Failed to delete expired artifact",
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
		}

		scratch.Remove(job.ImageDir)

		if err := w.store.Delete(ctx, job.ID); err != nil {
			w.logger.Error("Failed to delete expired job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		w.logger.Info("Swept expired job",
			slog.String("job_id", job.ID),
			slog.String("status", job.Status),
		)
	}
}
