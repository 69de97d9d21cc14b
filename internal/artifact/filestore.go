package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps artifacts on the local filesystem under a single output
// directory, served statically by the API service.
type FileStore struct {
	outputDir string
	baseURL   string
}

// NewFileStore creates a filesystem artifact store rooted at outputDir.
// baseURL is the public address the API service serves the directory from.
func NewFileStore(outputDir, baseURL string) (*FileStore, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, errors.New("artifact: output directory is required")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: ensure output directory: %w", err)
	}
	return &FileStore{
		outputDir: outputDir,
		baseURL:   strings.TrimRight(baseURL, "/"),
	}, nil
}

var _ Store = (*FileStore)(nil)

func (s *FileStore) Save(ctx context.Context, jobID string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := s.path(jobID)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write file: %w", err)
	}

	return fmt.Sprintf("%s/output/%s.png", s.baseURL, jobID), nil
}

func (s *FileStore) Delete(_ context.Context, jobID string) error {
	err := os.Remove(s.path(jobID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("artifact: remove file: %w", err)
	}
	return nil
}

func (s *FileStore) path(jobID string) string {
	// Job ids are UUIDs generated by this service, but clean anyway so a
	// crafted id cannot escape the output directory.
	return filepath.Join(s.outputDir, filepath.Base(jobID)+".png")
}
