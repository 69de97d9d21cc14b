package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrealks/bowerbirder/internal/api/dto"
	"github.com/montrealks/bowerbirder/internal/jobs"
)

func TestClient_Submit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/jobs", r.URL.Path)

		var req dto.CreateJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "fridge", req.Style)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(dto.CreateJobResponse{
			JobID:  "7f9c24e5-1df3-4f82-9d0e-111111111111",
			Status: jobs.StatusQueued,
		})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})

	jobID, err := c.Submit(context.Background(), &dto.CreateJobRequest{
		Images: []string{"AAAA", "BBBB"},
		Style:  "fridge",
	})
	require.NoError(t, err)
	assert.Equal(t, "7f9c24e5-1df3-4f82-9d0e-111111111111", jobID)
}

func TestClient_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "Server busy, try again later"}`))
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})

	_, err := c.Submit(context.Background(), &dto.CreateJobRequest{Images: []string{"AAAA"}})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "Server busy, try again later", apiErr.Message)
}

func TestClient_GetJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jobs/abc", r.URL.Path)
		_ = json.NewEncoder(w).Encode(dto.JobStatusResponse{
			JobID:        "abc",
			Status:       jobs.StatusProcessing,
			StatusDetail: "Generating collage...",
		})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})

	status, err := c.GetJob(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, status.Status)
	assert.Equal(t, "Generating collage...", status.StatusDetail)
}

func TestClient_WaitForResult(t *testing.T) {
	t.Run("completes after a few polls", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resp := dto.JobStatusResponse{JobID: "abc", Status: jobs.StatusProcessing}
			if calls.Add(1) >= 3 {
				resp.Status = jobs.StatusCompleted
				resp.OutputURL = "http://localhost:8080/output/abc.png"
			}
			_ = json.NewEncoder(w).Encode(resp)
		}))
		defer srv.Close()

		c := New(Options{BaseURL: srv.URL, PollInterval: time.Millisecond})

		status, err := c.WaitForResult(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, jobs.StatusCompleted, status.Status)
		assert.Equal(t, "http://localhost:8080/output/abc.png", status.OutputURL)
	})

	t.Run("failed job surfaces its error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(dto.JobStatusResponse{
				JobID:  "abc",
				Status: jobs.StatusFailed,
				Error:  "generation service error",
			})
		}))
		defer srv.Close()

		c := New(Options{BaseURL: srv.URL, PollInterval: time.Millisecond})

		status, err := c.WaitForResult(context.Background(), "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "generation service error")
		require.NotNil(t, status)
		assert.Equal(t, jobs.StatusFailed, status.Status)
	})

	t.Run("attempt budget exhausted", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(dto.JobStatusResponse{
				JobID:  "abc",
				Status: jobs.StatusQueued,
			})
		}))
		defer srv.Close()

		c := New(Options{BaseURL: srv.URL, PollInterval: time.Millisecond, PollAttempts: 3})

		_, err := c.WaitForResult(context.Background(), "abc")
		assert.ErrorIs(t, err, ErrPollTimeout)
	})

	t.Run("context cancellation stops polling", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(dto.JobStatusResponse{
				JobID:  "abc",
				Status: jobs.StatusQueued,
			})
		}))
		defer srv.Close()

		c := New(Options{BaseURL: srv.URL, PollInterval: time.Hour})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := c.WaitForResult(ctx, "abc")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClient_ListStyles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/styles", r.URL.Path)
		_ = json.NewEncoder(w).Encode(dto.ListStylesResponse{
			Styles: []dto.StyleDTO{
				{ID: "fridge", Name: "On the Fridge"},
				{ID: "clean", Name: "Clean"},
			},
		})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL})

	styles, err := c.ListStyles(context.Background())
	require.NoError(t, err)
	require.Len(t, styles, 2)
	assert.Equal(t, "fridge", styles[0].ID)
}
