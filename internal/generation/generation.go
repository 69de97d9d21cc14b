// Package generation adapts preprocessed image batches into the external
// image generation service's request shape and parses its responses.
package generation

import "context"

// Request is the normalized generation request assembled by the worker.
type Request struct {
	Prompt      string
	ImageURLs   []string // data URLs or fetchable URLs
	AspectRatio string
}

// Result describes the single output the caller consumes. When the service
// returns multiple candidates, the first one is taken.
type Result struct {
	URL    string
	Width  int
	Height int
}

// Generator is the contract the worker pipeline depends on. Implementations
// carry no retry or fallback logic; callers decide failure handling.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Download(ctx context.Context, url string) ([]byte, error)
}
