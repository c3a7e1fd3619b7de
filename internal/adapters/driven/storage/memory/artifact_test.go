package memory

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func TestArtifactStore_WriteThenOpen(t *testing.T) {
	store := NewArtifactStore()
	docs := []domain.Document{{ID: 0, Title: "Intro", Content: "hello", Path: "/intro/"}}

	require.NoError(t, store.Write(context.Background(), "index.json", docs))

	rc, size, err := store.Open(context.Background(), "index.json")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), size)
	assert.JSONEq(t, `[{"id":0,"title":"Intro","content":"hello","path":"/intro/","anchors":null}]`, string(data))
	assert.Equal(t, 1, store.Opens("index.json"))
}

func TestArtifactStore_WriteNilIsEmptyArray(t *testing.T) {
	store := NewArtifactStore()
	require.NoError(t, store.Write(context.Background(), "index.json", nil))

	data, ok := store.Get("index.json")
	require.True(t, ok)
	assert.Equal(t, "[]", string(data))
}

func TestArtifactStore_OpenMissing(t *testing.T) {
	_, _, err := NewArtifactStore().Open(context.Background(), "nope.json")
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
}

func TestArtifactStore_FailAndHideSize(t *testing.T) {
	store := NewArtifactStore()
	store.Put("a.json", []byte("[]"))

	boom := errors.New("boom")
	store.Fail("a.json", boom)
	_, _, err := store.Open(context.Background(), "a.json")
	assert.ErrorIs(t, err, boom)

	store.Fail("a.json", nil)
	store.HideSize(true)
	rc, size, err := store.Open(context.Background(), "a.json")
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, int64(-1), size)
	assert.Equal(t, 2, store.Opens("a.json"))
}

func TestArtifactStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewArtifactStore()
	_, _, err := store.Open(ctx, "a.json")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Write(ctx, "a.json", nil), context.Canceled)
}
