// Package artifact stores generated collage outputs and hands out their
// public URLs. Artifacts share the owning job's TTL; deletion is driven by
// the status query path and the worker's sweeper.
package artifact

import "context"

// Store is the contract for artifact backends.
type Store interface {
	// Save persists the output bytes for a job and returns the URL the
	// polling client can fetch it from.
	Save(ctx context.Context, jobID string, data []byte) (string, error)

	// Delete removes the artifact. Deleting a missing artifact is not an
	// error.
	Delete(ctx context.Context, jobID string) error
}
