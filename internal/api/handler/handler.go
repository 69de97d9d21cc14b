package handler

import (
	"context"
	"log/slog"

	"github.com/montrealks/bowerbirder/internal/artifact"
	"github.com/montrealks/bowerbirder/internal/config"
	"github.com/montrealks/bowerbirder/internal/scratch"
	"github.com/montrealks/bowerbirder/internal/store"
)

// Publisher is the queue notification the admission path needs: one
// fire-and-forget message per accepted job. shared/rabbitmq.Client
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     store.Store
	Publisher Publisher
	Artifacts artifact.Store
	Scratch   *scratch.Dir
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     store.Store
	publisher Publisher
	artifacts artifact.Store
	scratch   *scratch.Dir
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		cfg:       deps.Config,
		store:     deps.Store,
		publisher: deps.Publisher,
		artifacts: deps.Artifacts,
		scratch:   deps.Scratch,
	}
}
