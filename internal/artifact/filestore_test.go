package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileStore(t *testing.T) {
	t.Run("creates missing output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "output")

		_, err := NewFileStore(dir, "http://localhost:8080")
		require.NoError(t, err)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty output directory", func(t *testing.T) {
		_, err := NewFileStore("  ", "http://localhost:8080")
		require.Error(t, err)
	})
}

func TestFileStore_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, "http://localhost:8080/")
	require.NoError(t, err)

	ctx := context.Background()
	jobID := uuid.New().String()
	payload := []byte("png bytes")

	url, err := s.Save(ctx, jobID, payload)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/output/"+jobID+".png", url)

	data, err := os.ReadFile(filepath.Join(dir, jobID+".png"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	require.NoError(t, s.Delete(ctx, jobID))
	_, err = os.Stat(filepath.Join(dir, jobID+".png"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing artifact is fine.
	require.NoError(t, s.Delete(ctx, jobID))
}

func TestFileStore_PathTraversalGuard(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "output")
	s, err := NewFileStore(dir, "http://localhost:8080")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "../escape", []byte("x"))
	require.NoError(t, err)

	// The file must land inside the output directory, not beside it.
	_, statErr := os.Stat(filepath.Join(dir, "escape.png"))
	require.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(root, "escape.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStore_SaveCanceledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Save(ctx, uuid.New().String(), []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
