package artifact

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func TestWatcher_ReportsReplacement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search-index.json")
	writeFile(t, path, "[]")

	w := NewWatcher(200 * time.Millisecond)
	defer w.Close()
	changes, err := w.Watch(context.Background(), path)
	require.NoError(t, err)

	// Three writes in a burst coalesce into one change.
	for i := 0; i < 3; i++ {
		require.NoError(t, NewFileWriter().Write(context.Background(), path, []domain.Document{{ID: 0, Title: "v"}}))
	}

	select {
	case _, ok := <-changes:
		require.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case <-changes:
		t.Fatal("burst reported more than once")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search-index.json")
	writeFile(t, path, "[]")

	w := NewWatcher(10 * time.Millisecond)
	defer w.Close()
	changes, err := w.Watch(context.Background(), path)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "other.json"), "{}")

	select {
	case <-changes:
		t.Fatal("unrelated file reported")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_ClosesChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search-index.json")
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWatcher(0)
	changes, err := w.Watch(ctx, path)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}

	_, err = w.Watch(context.Background(), path)
	assert.Error(t, err)
	assert.NoError(t, w.Close())
}
