package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

func newTestJob() *jobs.Job {
	return &jobs.Job{
		ID:          uuid.New().String(),
		Status:      jobs.StatusQueued,
		Style:       "fridge",
		AspectRatio: "16:9",
		ImageCount:  3,
		ImageDir:    "/tmp/images/" + uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
	}
}

func TestMemory_EnqueueAndGet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	job := newTestJob()
	require.NoError(t, s.Enqueue(ctx, job, 10))

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, jobs.StatusQueued, got.Status)
	assert.Equal(t, "fridge", got.Style)

	count, err := s.QueuedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemory_GetUnknown(t *testing.T) {
	s := NewMemory()

	_, err := s.Get(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestMemory_EnqueueRejectsWhenFull(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Enqueue(ctx, newTestJob(), 3))
	}

	rejected := newTestJob()
	err := s.Enqueue(ctx, rejected, 3)
	assert.ErrorIs(t, err, jobs.ErrQueueFull)

	// No record may exist for a rejected submission.
	_, err = s.Get(ctx, rejected.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
}

func TestMemory_EnqueueConcurrentNeverExceedsCap(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	const maxQueued = 10

	var wg sync.WaitGroup
	accepted := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			job := newTestJob()
			if err := s.Enqueue(ctx, job, maxQueued); err == nil {
				accepted <- job.ID
			}
		}()
	}
	wg.Wait()
	close(accepted)

	count, err := s.QueuedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, maxQueued, count)
	assert.Len(t, accepted, maxQueued)
}

func TestMemory_ClaimExactlyOnce(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	job := newTestJob()
	require.NoError(t, s.Enqueue(ctx, job, 10))

	var wg sync.WaitGroup
	wins := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Claim(ctx, job.ID, "Preparing images..."); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1)

	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, got.Status)
	assert.Equal(t, "Preparing images...", got.StatusDetail)
}

func TestMemory_ClaimUnknownOrNotQueued(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.Claim(ctx, uuid.New().String(), "x")
	assert.ErrorIs(t, err, jobs.ErrAlreadyClaimed)

	job := newTestJob()
	require.NoError(t, s.Enqueue(ctx, job, 10))
	_, err = s.Claim(ctx, job.ID, "x")
	require.NoError(t, err)

	_, err = s.Claim(ctx, job.ID, "x")
	assert.ErrorIs(t, err, jobs.ErrAlreadyClaimed)
}

func TestMemory_TerminalTransitions(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().UTC().Add(30 * time.Minute)

	t.Run("complete commits output and expiry once", func(t *testing.T) {
		s := NewMemory()
		job := newTestJob()
		require.NoError(t, s.Enqueue(ctx, job, 10))
		_, err := s.Claim(ctx, job.ID, "x")
		require.NoError(t, err)

		require.NoError(t, s.Complete(ctx, job.ID, "http://example.com/output/a.png", expires))

		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, jobs.StatusCompleted, got.Status)
		assert.Empty(t, got.StatusDetail)
		assert.Equal(t, "http://example.com/output/a.png", got.OutputURL)
		require.NotNil(t, got.ExpiresAt)
		assert.True(t, got.ExpiresAt.Equal(expires))

		// A second terminal commit of either kind must be refused.
		assert.ErrorIs(t, s.Complete(ctx, job.ID, "other", expires), jobs.ErrNotTerminal)
		assert.ErrorIs(t, s.Fail(ctx, job.ID, "late failure"), jobs.ErrNotTerminal)
	})

	t.Run("fail commits error message once", func(t *testing.T) {
		s := NewMemory()
		job := newTestJob()
		require.NoError(t, s.Enqueue(ctx, job, 10))
		_, err := s.Claim(ctx, job.ID, "x")
		require.NoError(t, err)

		require.NoError(t, s.Fail(ctx, job.ID, "generation service error"))

		got, err := s.Get(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, jobs.StatusFailed, got.Status)
		assert.Equal(t, "generation service error", got.Error)

		assert.ErrorIs(t, s.Fail(ctx, job.ID, "again"), jobs.ErrNotTerminal)
		assert.ErrorIs(t, s.Complete(ctx, job.ID, "url", expires), jobs.ErrNotTerminal)
	})

	t.Run("terminal commit requires processing state", func(t *testing.T) {
		s := NewMemory()
		job := newTestJob()
		require.NoError(t, s.Enqueue(ctx, job, 10))

		assert.ErrorIs(t, s.Complete(ctx, job.ID, "url", expires), jobs.ErrNotTerminal)
		assert.ErrorIs(t, s.Fail(ctx, job.ID, "boom"), jobs.ErrNotTerminal)
	})
}

func TestMemory_SetStatusDetailOnlyWhileProcessing(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	job := newTestJob()
	require.NoError(t, s.Enqueue(ctx, job, 10))

	// Queued jobs keep their detail untouched.
	require.NoError(t, s.SetStatusDetail(ctx, job.ID, "ignored"))
	got, err := s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.StatusDetail)

	_, err = s.Claim(ctx, job.ID, "Preparing images...")
	require.NoError(t, err)

	require.NoError(t, s.SetStatusDetail(ctx, job.ID, "Generating collage..."))
	got, err = s.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Generating collage...", got.StatusDetail)
}

func TestMemory_Delete(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	job := newTestJob()
	require.NoError(t, s.Enqueue(ctx, job, 10))
	require.NoError(t, s.Delete(ctx, job.ID))

	_, err := s.Get(ctx, job.ID)
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)

	// Idempotent.
	require.NoError(t, s.Delete(ctx, job.ID))
}

func TestMemory_CompletedFreesQueueCapacity(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first := newTestJob()
	require.NoError(t, s.Enqueue(ctx, first, 1))
	assert.ErrorIs(t, s.Enqueue(ctx, newTestJob(), 1), jobs.ErrQueueFull)

	_, err := s.Claim(ctx, first.ID, "x")
	require.NoError(t, err)

	// Once claimed the job no longer occupies a queue slot.
	require.NoError(t, s.Enqueue(ctx, newTestJob(), 1))
}

func TestMemory_ListExpired(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	now := time.Now().UTC()

	advance := func(j *jobs.Job) *jobs.Job {
		require.NoError(t, s.Enqueue(ctx, j, 100))
		_, err := s.Claim(ctx, j.ID, "x")
		require.NoError(t, err)
		return j
	}

	expiredJob := advance(newTestJob())
	require.NoError(t, s.Complete(ctx, expiredJob.ID, "url", now.Add(-time.Minute)))

	freshJob := advance(newTestJob())
	require.NoError(t, s.Complete(ctx, freshJob.ID, "url", now.Add(time.Hour)))

	oldFailed := newTestJob()
	oldFailed.CreatedAt = now.Add(-2 * time.Hour)
	advance(oldFailed)
	require.NoError(t, s.Fail(ctx, oldFailed.ID, "boom"))

	recentFailed := advance(newTestJob())
	require.NoError(t, s.Fail(ctx, recentFailed.ID, "boom"))

	// Still queued, never expires.
	require.NoError(t, s.Enqueue(ctx, newTestJob(), 100))

	expired, err := s.ListExpired(ctx, now, time.Hour)
	require.NoError(t, err)

	ids := make(map[string]bool, len(expired))
	for _, j := range expired {
		ids[j.ID] = true
	}
	assert.Len(t, expired, 2, fmt.Sprintf("got %v", ids))
	assert.True(t, ids[expiredJob.ID])
	assert.True(t, ids[oldFailed.ID])
}
