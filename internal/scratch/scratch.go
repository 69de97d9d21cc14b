// Package scratch holds submitted image payloads on disk between admission
// and processing, keeping large base64 bodies out of the job store. Each
// job gets its own directory, removed when the job goes terminal.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Dir manages per-job input directories under a common root.
type Dir struct {
	root string
}

// New creates a scratch root, making the directory if needed.
func New(root string) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("scratch: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("scratch: ensure root: %w", err)
	}
	return &Dir{root: root}, nil
}

// Save writes the image payloads for a job and returns the job's directory.
// On any write failure the partial directory is removed.
func (d *Dir) Save(jobID string, images []string) (string, error) {
	dir := filepath.Join(d.root, filepath.Base(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scratch: create job dir: %w", err)
	}

	for i, img := range images {
		path := filepath.Join(dir, fmt.Sprintf("img_%03d.dat", i))
		if err := os.WriteFile(path, []byte(img), 0o644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("scratch: write image %d: %w", i, err)
		}
	}

	return dir, nil
}

// Load reads a job's image payloads back in submission order.
func Load(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scratch: read job dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".dat") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	images := make([]string, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("scratch: read image %s: %w", name, err)
		}
		images = append(images, string(data))
	}
	return images, nil
}

// Remove deletes a job's directory. Missing directories are ignored.
func Remove(dir string) {
	if dir != "" {
		os.RemoveAll(dir)
	}
}
