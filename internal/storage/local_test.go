package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/framekit/framekit/internal/config"
	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeObject(t *testing.T, root, objectPath, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(objectPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func TestLocalStorage_Open(t *testing.T) {
	root := t.TempDir()
	writeObject(t, root, "stats/players.csv", "Player,PPG\nJordan,30.1\n")

	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), "stats/players.csv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "Player,PPG\nJordan,30.1\n", string(data))
}

func TestLocalStorage_OpenNotFound(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "missing.csv")
	assert.True(t, errors.Is(err, ErrObjectNotFound))
	assert.False(t, ferrors.IsRetryable(err))
}

func TestLocalStorage_OpenDirectory(t *testing.T) {
	root := t.TempDir()
	writeObject(t, root, "dir/a.csv", "x")

	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "dir")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_StaysUnderRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "root")
	require.NoError(t, os.MkdirAll(root, 0755))
	writeObject(t, parent, "secret.csv", "x")

	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	_, err = store.Open(context.Background(), "../secret.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_Exists(t *testing.T) {
	root := t.TempDir()
	writeObject(t, root, "a.csv", "x")

	store, err := NewLocalStorage(root)
	require.NoError(t, err)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "a.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "b.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocalStorage_ListObjects(t *testing.T) {
	root := t.TempDir()
	writeObject(t, root, "season/2003.csv", "x")
	writeObject(t, root, "season/2001.csv", "x")
	writeObject(t, root, "season/old/1998.csv", "x")
	writeObject(t, root, "other.csv", "x")

	store, err := NewLocalStorage(root)
	require.NoError(t, err)
	ctx := context.Background()

	objects, err := store.ListObjects(ctx, "season")
	require.NoError(t, err)
	assert.Equal(t, []string{"season/2001.csv", "season/2003.csv", "season/old/1998.csv"}, objects)

	objects, err = store.ListObjects(ctx, "nothing-here")
	require.NoError(t, err)
	assert.Empty(t, objects)
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Open(ctx, "a.csv")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLocalStorage_MissingRoot(t *testing.T) {
	_, err := NewLocalStorage(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	root := t.TempDir()

	store, err := New(context.Background(), config.StorageConfig{Type: "local", Path: root})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, store)

	_, err = New(context.Background(), config.StorageConfig{Type: "gcs"})
	assert.Error(t, err)
}

func TestBackoff(t *testing.T) {
	assert.Less(t, backoff(0), backoff(1))
	assert.Less(t, backoff(1), backoff(2))
}
