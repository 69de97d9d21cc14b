// Package client is a small HTTP client for the collage service. It submits
// jobs, reads their status, and can poll until a job reaches a terminal
// state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/montrealks/bowerbirder/internal/api/dto"
	"github.com/montrealks/bowerbirder/internal/jobs"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 150
)

// ErrPollTimeout is returned by WaitForResult when the job does not reach a
// terminal state within the attempt budget.
var ErrPollTimeout = fmt.Errorf("client: job did not finish within the polling budget")

// Options configures the service client.
type Options struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
	PollAttempts int
}

// Client talks to the collage API service.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	pollInterval time.Duration
	pollAttempts int
}

// New creates a service client for the given base URL.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := opts.PollAttempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		pollInterval: interval,
		pollAttempts: attempts,
	}
}

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: api error (status %d): %s", e.Status, e.Message)
}

// Submit sends a job request and returns the accepted job id.
func (c *Client) Submit(ctx context.Context, req *dto.CreateJobRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("client: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("client: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("client: submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", c.apiError(resp)
	}

	var created dto.CreateJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("client: decode response: %w", err)
	}
	return created.JobID, nil
}

// GetJob fetches the current status of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("client: get job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var status dto.JobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &status, nil
}

// WaitForResult polls the job until it completes, fails, or the attempt
// budget runs out. A failed job is returned along with its error message
// wrapped as an error.
func (c *Client) WaitForResult(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		status, err := c.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case jobs.StatusCompleted:
			return status, nil
		case jobs.StatusFailed:
			return status, fmt.Errorf("client: job failed: %s", status.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	return nil, ErrPollTimeout
}

// ListStyles fetches the style catalog.
func (c *Client) ListStyles(ctx context.Context) ([]dto.StyleDTO, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/styles", nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("client: list styles: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.apiError(resp)
	}

	var catalog dto.ListStylesResponse
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return catalog.Styles, nil
}

func (c *Client) apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var body struct {
		Error string `json:"error"`
	}
	message := strings.TrimSpace(string(raw))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		message = body.Error
	}

	return &APIError{Status: resp.StatusCode, Message: message}
}
