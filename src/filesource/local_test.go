package filesource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/clearinghouse/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func setupLocal(t *testing.T) (*Local, string, string) {
	t.Helper()
	root := t.TempDir()
	inbound := filepath.Join(root, "inbound")
	processed := filepath.Join(root, "processed")
	require.NoError(t, os.MkdirAll(inbound, 0o755))
	return NewLocal(inbound, processed), inbound, processed
}

func writeInbound(t *testing.T, inbound, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(inbound, name), []byte(content), 0o644))
}

func TestLocalList_SkipsDirectories(t *testing.T) {
	source, inbound, _ := setupLocal(t)
	writeInbound(t, inbound, "a.csv", "x")
	writeInbound(t, inbound, "b.txt", "y")
	require.NoError(t, os.MkdirAll(filepath.Join(inbound, "subdir"), 0o755))

	names, err := source.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.csv", "b.txt"}, names)
}

func TestLocalList_MissingDirectoryFails(t *testing.T) {
	source := NewLocal(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	_, err := source.List(context.Background())
	assert.Error(t, err)
}

func TestLocalFetch_CopiesContent(t *testing.T) {
	source, inbound, _ := setupLocal(t)
	writeInbound(t, inbound, "trades.csv", "header\nrow\n")

	localPath := filepath.Join(t.TempDir(), "buffer.tmp")
	require.NoError(t, source.Fetch(context.Background(), "trades.csv", localPath))

	got, err := os.ReadFile(localPath)
	require.NoError(t, err)
	assert.Equal(t, "header\nrow\n", string(got))

	// Fetch never consumes the inbound original.
	_, err = os.Stat(filepath.Join(inbound, "trades.csv"))
	assert.NoError(t, err)
}

func TestLocalFetch_MissingFileFails(t *testing.T) {
	source, _, _ := setupLocal(t)
	err := source.Fetch(context.Background(), "absent.csv", filepath.Join(t.TempDir(), "buffer.tmp"))
	assert.Error(t, err)
}

func TestLocalRelocate_UsesLocalCopyWhenAvailable(t *testing.T) {
	source, inbound, processed := setupLocal(t)
	writeInbound(t, inbound, "trades.csv", "original content")

	localPath := filepath.Join(t.TempDir(), "buffer.tmp")
	require.NoError(t, source.Fetch(context.Background(), "trades.csv", localPath))

	require.NoError(t, source.Relocate(context.Background(), "trades.csv", localPath))

	got, err := os.ReadFile(filepath.Join(processed, "trades.csv"))
	require.NoError(t, err)
	assert.Equal(t, "original content", string(got))

	_, err = os.Stat(filepath.Join(inbound, "trades.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalRelocate_FallsBackToRename(t *testing.T) {
	source, inbound, processed := setupLocal(t)
	writeInbound(t, inbound, "trades.csv", "renamed content")

	require.NoError(t, source.Relocate(context.Background(), "trades.csv", ""))

	got, err := os.ReadFile(filepath.Join(processed, "trades.csv"))
	require.NoError(t, err)
	assert.Equal(t, "renamed content", string(got))

	_, err = os.Stat(filepath.Join(inbound, "trades.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalRelocate_OverwritesExistingProcessedFile(t *testing.T) {
	source, inbound, processed := setupLocal(t)
	require.NoError(t, os.MkdirAll(processed, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(processed, "trades.csv"), []byte("stale"), 0o644))
	writeInbound(t, inbound, "trades.csv", "fresh")

	require.NoError(t, source.Relocate(context.Background(), "trades.csv", ""))

	got, err := os.ReadFile(filepath.Join(processed, "trades.csv"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
}

func TestLocalRelocate_DeletePhaseFailureIsNamed(t *testing.T) {
	source, inbound, _ := setupLocal(t)

	// Local copy exists but the inbound original was already removed, so the
	// second phase of the copy-then-delete fallback fails.
	writeInbound(t, inbound, "trades.csv", "content")
	localPath := filepath.Join(t.TempDir(), "buffer.tmp")
	require.NoError(t, source.Fetch(context.Background(), "trades.csv", localPath))
	require.NoError(t, os.Remove(filepath.Join(inbound, "trades.csv")))

	err := source.Relocate(context.Background(), "trades.csv", localPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete phase")
}
