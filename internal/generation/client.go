package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

// Options configures the HTTP generation client.
type Options struct {
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client calls the remote generation service over HTTP with JSON bodies.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// NewClient creates a generation client. The per-request wall-clock bound is
// the caller's context deadline; Timeout only caps the underlying transport.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 3 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		apiKey:     strings.TrimSpace(opts.APIKey),
	}
}

var _ Generator = (*Client)(nil)

type generateRequest struct {
	Prompt       string   `json:"prompt"`
	ImageURLs    []string `json:"image_urls"`
	Resolution   string   `json:"resolution"`
	AspectRatio  string   `json:"aspect_ratio"`
	OutputFormat string   `json:"output_format"`
	NumImages    int      `json:"num_images"`
}

type generateResponse struct {
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
	Detail string `json:"detail"`
}

// Generate issues the generation call and extracts the first returned image.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:       req.Prompt,
		ImageURLs:    req.ImageURLs,
		Resolution:   "2K",
		AspectRatio:  req.AspectRatio,
		OutputFormat: "png",
		NumImages:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Key "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation call failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &jobs.UpstreamError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(payload),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, &jobs.UpstreamError{Message: "malformed response body"}
	}

	if len(parsed.Images) == 0 {
		return nil, &jobs.UpstreamError{Message: "no images returned"}
	}

	first := parsed.Images[0]
	if first.URL == "" {
		return nil, &jobs.UpstreamError{Message: "image descriptor missing url"}
	}

	return &Result{URL: first.URL, Width: first.Width, Height: first.Height}, nil
}

// Download fetches the generated output bytes.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("result download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &jobs.UpstreamError{Status: resp.StatusCode, Message: "result download failed"}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read result body: %w", err)
	}
	return data, nil
}

// upstreamMessage pulls a human-readable message out of an error response,
// falling back to the raw body.
func upstreamMessage(payload []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(payload, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if len(payload) > 200 {
		payload = payload[:200]
	}
	return string(payload)
}
