package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/montrealks/bowerbirder/internal/config"
	"github.com/montrealks/bowerbirder/internal/generation"
	"github.com/montrealks/bowerbirder/internal/jobs"
	"github.com/montrealks/bowerbirder/internal/preprocess"
	"github.com/montrealks/bowerbirder/internal/scratch"
)

// processJob drives a single job through the state machine. The returned
// error only controls the ACK/NACK decision; the job's own outcome is
// committed to the store before returning.
func (w *Worker) processJob(ctx context.Context, msg *jobs.Message) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", w.workerID),
	)

	job, err := w.store.Claim(ctx, msg.JobID, "Preparing images...")
	if err != nil {
		if errors.Is(err, jobs.ErrAlreadyClaimed) {
			w.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", msg.JobID),
			)
			return fmt.Errorf("job already claimed: %w", err)
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	// Input payloads are no longer needed once the job is terminal.
	defer scratch.Remove(job.ImageDir)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	outputURL, expiresAt, err := w.runJob(jobCtx, job)
	if err != nil {
		message := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			message = fmt.Sprintf("processing timed out after %s", w.jobTimeout)
		}

		w.logger.Error("Job execution failed",
			slog.String("job_id", job.ID),
			slog.String("error", message),
		)

		// Commit on the parent context so an expired job deadline cannot
		// block the terminal transition.
		if failErr := w.store.Fail(ctx, job.ID, message); failErr != nil {
			w.logger.Error("Failed to commit failed state",
				slog.String("job_id", job.ID),
				slog.String("error", failErr.Error()),
			)
		}
		return fmt.Errorf("job execution failed: %w", err)
	}

	if err := w.store.Complete(ctx, job.ID, outputURL, expiresAt); err != nil {
		// The artifact exists but the record never says so; drop it rather
		// than leak an unreachable output.
		w.logger.Error("Failed to commit completed state",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		if delErr := w.artifacts.Delete(ctx, job.ID); delErr != nil {
			w.logger.Error("Failed to remove orphaned artifact",
				slog.String("job_id", job.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return fmt.Errorf("failed to commit completion: %w", err)
	}

	w.logger.Info("Job completed",
		slog.String("job_id", job.ID),
		slog.String("output_url", outputURL),
	)
	return nil
}

// runJob executes the processing stages under the job deadline and returns
// the artifact URL and its expiry.
func (w *Worker) runJob(ctx context.Context, job *jobs.Job) (string, time.Time, error) {
	imageURLs, err := w.prepareImages(ctx, job)
	if err != nil {
		return "", time.Time{}, err
	}

	prompt, ok := config.StylePrompt(job.Style)
	if !ok {
		// Admission validates styles; a miss here means the preset catalog
		// changed under a queued job.
		return "", time.Time{}, fmt.Errorf("unknown style: %s", job.Style)
	}

	w.setDetail(ctx, job.ID, "Generating collage...")
	result, err := w.generator.Generate(ctx, generation.Request{
		Prompt:      prompt,
		ImageURLs:   imageURLs,
		AspectRatio: job.AspectRatio,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	w.setDetail(ctx, job.ID, "Downloading result...")
	data, err := w.generator.Download(ctx, result.URL)
	if err != nil {
		return "", time.Time{}, err
	}

	w.setDetail(ctx, job.ID, "Saving result...")
	outputURL, err := w.artifacts.Save(ctx, job.ID, data)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to save artifact: %w", err)
	}

	expiresAt := time.Now().UTC().Add(w.outputExpiry)
	return outputURL, expiresAt, nil
}

// prepareImages loads, optimizes, and re-encodes the job's inputs as data
// URLs for the generation request.
func (w *Worker) prepareImages(ctx context.Context, job *jobs.Job) ([]string, error) {
	images, err := scratch.Load(job.ImageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load job images: %w", err)
	}

	imageURLs := make([]string, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		w.setDetail(ctx, job.ID, fmt.Sprintf("Optimizing image %d/%d...", i+1, len(images)))

		raw, err := preprocess.DecodeDataURL(img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}

		optimized, err := preprocess.Optimize(raw, w.optimize)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}

		w.logger.Debug("Optimized image",
			slog.String("job_id", job.ID),
			slog.Int("index", i+1),
			slog.Int("raw_kb", len(raw)/1024),
			slog.Int("optimized_kb", len(optimized)/1024),
		)

		imageURLs = append(imageURLs, preprocess.EncodeDataURL(optimized))
	}

	return imageURLs, nil
}

// setDetail updates the progress string; failures are log-only since the
// detail is cosmetic.
func (w *Worker) setDetail(ctx context.Context, jobID, detail string) {
	if err := w.store.SetStatusDetail(ctx, jobID, detail); err != nil {
		w.logger.Warn("Failed to update status detail",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
