package store

import (
	"context"
	"sync"
	"time"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

// Memory is an in-process Store guarded by a single mutex. It mirrors the
// Postgres implementation's semantics (atomic admission, exclusive claim,
// single terminal commit) and backs the unit tests of everything above the
// storage layer.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]*jobs.Job
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*jobs.Job)}
}

var _ Store = (*Memory)(nil)

func (s *Memory) Enqueue(_ context.Context, job *jobs.Job, maxQueued int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queuedLocked() >= maxQueued {
		return jobs.ErrQueueFull
	}

	stored := *job
	stored.Status = jobs.StatusQueued
	s.jobs[job.ID] = &stored
	return nil
}

func (s *Memory) Get(_ context.Context, jobID string) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, jobs.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *Memory) Claim(_ context.Context, jobID, detail string) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != jobs.StatusQueued {
		return nil, jobs.ErrAlreadyClaimed
	}

	job.Status = jobs.StatusProcessing
	job.StatusDetail = detail
	copied := *job
	return &copied, nil
}

func (s *Memory) SetStatusDetail(_ context.Context, jobID, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[jobID]; ok && job.Status == jobs.StatusProcessing {
		job.StatusDetail = detail
	}
	return nil
}

func (s *Memory) Complete(_ context.Context, jobID, outputURL string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != jobs.StatusProcessing {
		return jobs.ErrNotTerminal
	}

	job.Status = jobs.StatusCompleted
	job.StatusDetail = ""
	job.OutputURL = outputURL
	job.ExpiresAt = &expiresAt
	return nil
}

func (s *Memory) Fail(_ context.Context, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.Status != jobs.StatusProcessing {
		return jobs.ErrNotTerminal
	}

	job.Status = jobs.StatusFailed
	job.StatusDetail = ""
	job.Error = message
	return nil
}

func (s *Memory) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, jobID)
	return nil
}

func (s *Memory) QueuedCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queuedLocked(), nil
}

func (s *Memory) ListExpired(_ context.Context, now time.Time, failedRetention time.Duration) ([]jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []jobs.Job
	for _, job := range s.jobs {
		switch {
		case job.Expired(now):
			expired = append(expired, *job)
		case job.Status == jobs.StatusFailed && !job.CreatedAt.After(now.Add(-failedRetention)):
			expired = append(expired, *job)
		}
	}
	return expired, nil
}

func (s *Memory) queuedLocked() int {
	count := 0
	for _, job := range s.jobs {
		if job.Status == jobs.StatusQueued {
			count++
		}
	}
	return count
}
