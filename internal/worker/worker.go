package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/montrealks/bowerbirder/internal/artifact"
	"github.com/montrealks/bowerbirder/internal/generation"
	"github.com/montrealks/bowerbirder/internal/jobs"
	"github.com/montrealks/bowerbirder/internal/preprocess"
	"github.com/montrealks/bowerbirder/internal/store"
	"github.com/montrealks/bowerbirder/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Store         store.Store
	RabbitClient  *rabbitmq.Client
	Generator     generation.Generator
	Artifacts     artifact.Store
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
	SweepInterval time.Duration
	OutputExpiry  time.Duration
	Optimize      preprocess.Options
}

// Worker consumes queued job ids and drives each job through the state
// machine: claim, preprocess, generate, persist artifact, commit terminal
// state. It also runs the periodic expiry sweeper.
type Worker struct {
	logger        *slog.Logger
	store         store.Store
	rabbitClient  *rabbitmq.Client
	generator     generation.Generator
	artifacts     artifact.Store
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	sweepInterval time.Duration
	outputExpiry  time.Duration
	optimize      preprocess.Options

	workerID string
	jobsChan chan *jobs.Message
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		store:         cfg.Store,
		rabbitClient:  cfg.RabbitClient,
		generator:     cfg.Generator,
		artifacts:     cfg.Artifacts,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		jobTimeout:    cfg.JobTimeout,
		sweepInterval: cfg.SweepInterval,
		outputExpiry:  cfg.OutputExpiry,
		optimize:      cfg.Optimize,
		workerID:      fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
		jobsChan:      make(chan *jobs.Message),
		stopChan:      make(chan struct{}),
	}
}

// Start begins consuming and processing jobs. It blocks until the context
// is canceled or the delivery stream closes.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go w.runSweeper(ctx)

	w.startMessageDispatcher(ctx, deliveries)
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
