package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job id is unknown or its record expired.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueFull is returned by admission when the queue is at capacity.
	// No job record is created in that case.
	ErrQueueFull = errors.New("job queue is full")

	// ErrAlreadyClaimed is returned when a worker loses the claim race for a
	// job that another worker already moved out of the queued state.
	ErrAlreadyClaimed = errors.New("job already claimed or not queued")

	// ErrNotTerminal is returned when a terminal commit targets a job that is
	// not in the processing state, preventing repeat terminal transitions.
	ErrNotTerminal = errors.New("job is not in a state that allows this transition")
)

// ValidationError rejects a submission before any job is created.
// PayloadTooLarge distinguishes size-limit violations (HTTP 413) from
// other invalid parameters (HTTP 400).
type ValidationError struct {
	Reason          string
	PayloadTooLarge bool
}

func (e *ValidationError) Error() string { return e.Reason }

// UpstreamError carries a failure reported by the external generation
// service, including its message when one was available.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("generation service error (status %d): %s", e.Status, e.Message)
	}
	return "generation service error: " + e.Message
}
