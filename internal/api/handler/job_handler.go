package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/montrealks/bowerbirder/internal/api/dto"
	"github.com/montrealks/bowerbirder/internal/config"
	"github.com/montrealks/bowerbirder/internal/jobs"
	"github.com/montrealks/bowerbirder/internal/scratch"
)

// CreateJob handles POST /jobs.
// Validates the submission, atomically admits it against the queue
// capacity, and publishes the job id for the worker pool. Never blocks on
// preprocessing or the generation service.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Style == "" {
		req.Style = "fridge"
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}

	if err := jobs.ValidateImages(req.Images, h.cfg.JobLimits()); err != nil {
		status := http.StatusBadRequest
		var vErr *jobs.ValidationError
		if errors.As(err, &vErr) && vErr.PayloadTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if _, ok := config.StylePrompt(req.Style); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown style: " + req.Style})
		return
	}

	if !config.ValidAspectRatio(req.AspectRatio) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported aspect ratio: " + req.AspectRatio})
		return
	}

	job := &jobs.Job{
		ID:          uuid.New().String(),
		Style:       req.Style,
		AspectRatio: req.AspectRatio,
		ImageCount:  len(req.Images),
		CreatedAt:   time.Now().UTC(),
	}

	imageDir, err := h.scratch.Save(job.ID, req.Images)
	if err != nil {
		h.logger.Error("Failed to save job images", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save images"})
		return
	}
	job.ImageDir = imageDir

	err = h.store.Enqueue(c.Request.Context(), job, h.cfg.Limits.MaxQueueLength)
	if err != nil {
		h.discardImages(imageDir)
		if errors.Is(err, jobs.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Server busy, try again later",
			})
			return
		}
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
		return
	}

	body, _ := json.Marshal(jobs.Message{JobID: job.ID})
	if err := h.publisher.Publish(c.Request.Context(), body, "application/json"); err != nil {
		// Without the wakeup the job would sit queued forever; undo the
		// admission so the client can resubmit.
		h.logger.Error("Failed to publish job message",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		_ = h.store.Delete(c.Request.Context(), job.ID)
		h.discardImages(imageDir)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
		return
	}

	h.logger.Info("Job accepted",
		slog.String("job_id", job.ID),
		slog.String("style", job.Style),
		slog.String("aspect_ratio", job.AspectRatio),
		slog.Int("images", job.ImageCount),
	)

	c.JSON(http.StatusCreated, dto.CreateJobResponse{
		JobID:  job.ID,
		Status: jobs.StatusQueued,
	})
}

// GetJob handles GET /jobs/:job_id.
// Applies lazy expiry: a completed job past its TTL is deleted together
// with its artifact, and reported as not found.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	job, err := h.store.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job"})
		return
	}

	if job.Expired(time.Now().UTC()) {
		h.expireJob(c, job)
		c.JSON(http.StatusNotFound, gin.H{"error": "Job result expired"})
		return
	}

	resp := dto.JobStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		StatusDetail: job.StatusDetail,
	}

	switch job.Status {
	case jobs.StatusCompleted:
		resp.OutputURL = job.OutputURL
		if job.ExpiresAt != nil {
			resp.ExpiresAt = job.ExpiresAt.UTC().Format(time.RFC3339)
		}
	case jobs.StatusFailed:
		resp.Error = job.Error
	}

	c.JSON(http.StatusOK, resp)
}

// expireJob removes an expired job's artifact and record. Failures are
// logged only; the caller still reports the expired outcome.
func (h *JobHandler) expireJob(c *gin.Context, job *jobs.Job) {
	ctx := c.Request.Context()

	if err := h.artifacts.Delete(ctx, job.ID); err != nil {
		h.logger.Error("Failed to delete expired artifact",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := h.store.Delete(ctx, job.ID); err != nil {
		h.logger.Error("Failed to delete expired job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
	}

	h.logger.Info("Expired job removed on read", slog.String("job_id", job.ID))
}

func (h *JobHandler) discardImages(dir string) {
	scratch.Remove(dir)
}
