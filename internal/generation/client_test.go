package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/montrealks/bowerbirder/internal/jobs"
)

func TestClient_Generate(t *testing.T) {
	var captured generateRequest
	var capturedAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"images": [
				{"url": "https://cdn.example.com/a.png", "width": 1024, "height": 576},
				{"url": "https://cdn.example.com/b.png", "width": 1024, "height": 576}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(Options{Endpoint: srv.URL, APIKey: "secret"})

	result, err := client.Generate(context.Background(), Request{
		Prompt:      "photos pinned on a fridge",
		ImageURLs:   []string{"data:image/jpeg;base64,AAAA"},
		AspectRatio: "16:9",
	})
	require.NoError(t, err)

	// First image wins even when the service returns several.
	assert.Equal(t, "https://cdn.example.com/a.png", result.URL)
	assert.Equal(t, 1024, result.Width)
	assert.Equal(t, 576, result.Height)

	assert.Equal(t, "Key secret", capturedAuth)
	assert.Equal(t, "photos pinned on a fridge", captured.Prompt)
	assert.Equal(t, []string{"data:image/jpeg;base64,AAAA"}, captured.ImageURLs)
	assert.Equal(t, "2K", captured.Resolution)
	assert.Equal(t, "16:9", captured.AspectRatio)
	assert.Equal(t, "png", captured.OutputFormat)
	assert.Equal(t, 1, captured.NumImages)
}

func TestClient_GenerateUpstreamErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "detail field",
			status:      http.StatusUnprocessableEntity,
			body:        `{"detail": "prompt rejected by safety filter"}`,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "prompt rejected by safety filter",
		},
		{
			name:        "error field",
			status:      http.StatusBadGateway,
			body:        `{"error": "backend unavailable"}`,
			wantStatus:  http.StatusBadGateway,
			wantMessage: "backend unavailable",
		},
		{
			name:        "raw body fallback",
			status:      http.StatusInternalServerError,
			body:        `upstream exploded`,
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "upstream exploded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(Options{Endpoint: srv.URL})
			_, err := client.Generate(context.Background(), Request{AspectRatio: "1:1"})

			var upstream *jobs.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, tt.wantStatus, upstream.Status)
			assert.Equal(t, tt.wantMessage, upstream.Message)
		})
	}
}

func TestClient_GenerateBadSuccessBodies(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "malformed json",
			body:        `{"images": [`,
			wantMessage: "malformed response body",
		},
		{
			name:        "empty image list",
			body:        `{"images": []}`,
			wantMessage: "no images returned",
		},
		{
			name:        "descriptor without url",
			body:        `{"images": [{"width": 100, "height": 100}]}`,
			wantMessage: "image descriptor missing url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(Options{Endpoint: srv.URL})
			_, err := client.Generate(context.Background(), Request{AspectRatio: "1:1"})

			var upstream *jobs.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, tt.wantMessage, upstream.Message)
		})
	}
}

func TestClient_Download(t *testing.T) {
	payload := []byte("png bytes")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(Options{Endpoint: srv.URL})

	t.Run("success", func(t *testing.T) {
		data, err := client.Download(context.Background(), srv.URL+"/result.png")
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("non-200", func(t *testing.T) {
		_, err := client.Download(context.Background(), srv.URL+"/missing.png")

		var upstream *jobs.UpstreamError
		require.True(t, errors.As(err, &upstream))
		assert.Equal(t, http.StatusNotFound, upstream.Status)
	})
}

func TestClient_GenerateWithoutAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"images": [{"url": "https://cdn.example.com/a.png"}]}`))
	}))
	defer srv.Close()

	client := NewClient(Options{Endpoint: srv.URL})
	_, err := client.Generate(context.Background(), Request{AspectRatio: "1:1"})
	require.NoError(t, err)
}
