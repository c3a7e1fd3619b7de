package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsearch/internal/core/domain"
)

func artifactBytes(t *testing.T, docs []domain.Document) []byte {
	t.Helper()
	data, err := json.Marshal(docs)
	require.NoError(t, err)
	return data
}

func sampleDocs() []domain.Document {
	return []domain.Document{
		{ID: 0, Title: "Getting Started", Content: "install guide", Path: "/getting-started/", Anchors: []domain.Anchor{}},
		{
			ID: 1, Title: "Installation Requirements", Content: "...", Path: "/install/",
			Anchors: []domain.Anchor{{ID: "reqs", Text: "Requirements", Level: 2}},
		},
	}
}

func artifactSettings(locations ...string) domain.ArtifactSettings {
	cfg := domain.DefaultSettings().Artifact
	cfg.Locations = locations
	return cfg
}

func TestArtifactLoader_LoadsFirstAvailableLocation(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("/search-index.json", artifactBytes(t, sampleDocs()))

	loader := NewArtifactLoader(store, artifactSettings("assets/search-index.json", "/search-index.json"))
	assert.Equal(t, domain.LoadNotLoaded, loader.State())

	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Installation Requirements", docs[1].Title)
	assert.Equal(t, domain.LoadLoaded, loader.State())
	assert.Equal(t, 1, store.Opens("assets/search-index.json"))
	assert.Equal(t, 1, store.Opens("/search-index.json"))

	// Loaded is sticky.
	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Opens("/search-index.json"))
}

func TestArtifactLoader_NotFoundIsRetryable(t *testing.T) {
	store := memory.NewArtifactStore()
	loader := NewArtifactLoader(store, artifactSettings("a.json", "b.json"))

	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	assert.ErrorIs(t, err, domain.ErrArtifactNotFound)
	assert.Equal(t, domain.LoadFailed, loader.State())
	assert.ErrorIs(t, loader.Err(), domain.ErrArtifactNotFound)

	store.Put("b.json", artifactBytes(t, sampleDocs()))

	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, domain.LoadLoaded, loader.State())
	assert.NoError(t, loader.Err())
}

func TestArtifactLoader_Malformed(t *testing.T) {
	for _, payload := range []string{`{"not":"an array"}`, `null`, `[{"id":0`, ``} {
		store := memory.NewArtifactStore()
		store.Put("a.json", []byte(payload))
		loader := NewArtifactLoader(store, artifactSettings("a.json"))

		_, err := loader.Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrArtifactMalformed, payload)
		assert.ErrorIs(t, err, domain.ErrSearchUnavailable, payload)
		assert.Equal(t, domain.LoadFailed, loader.State())
	}
}

func TestArtifactLoader_EagerBelowLimit(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("a.json", artifactBytes(t, sampleDocs()))

	var yields atomic.Int32
	loader := NewArtifactLoader(store, artifactSettings("a.json"), WithLoaderYield(func(context.Context) error {
		yields.Add(1)
		return nil
	}))

	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), yields.Load())
}

func TestArtifactLoader_ChunkedAboveLimit(t *testing.T) {
	docs := make([]domain.Document, 3000)
	for i := range docs {
		docs[i] = domain.Document{
			ID: i, Title: fmt.Sprintf("Page %d", i), Path: fmt.Sprintf("/p/%d/", i),
			Content: strings.Repeat("lorem ipsum ", 40),
		}
	}
	data := artifactBytes(t, docs)
	require.Greater(t, len(data), domain.MiB)

	store := memory.NewArtifactStore()
	store.Put("a.json", data)

	var yields atomic.Int32
	loader := NewArtifactLoader(store, artifactSettings("a.json"), WithLoaderYield(func(context.Context) error {
		yields.Add(1)
		return nil
	}))

	got, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3000)
	assert.Equal(t, int32(len(data)/(100*domain.KiB)), yields.Load())
}

func TestArtifactLoader_UnknownSizeIsChunked(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("a.json", artifactBytes(t, sampleDocs()))
	store.HideSize(true)

	cfg := artifactSettings("a.json")
	cfg.YieldEvery = 16

	var yields atomic.Int32
	loader := NewArtifactLoader(store, cfg, WithLoaderYield(func(context.Context) error {
		yields.Add(1)
		return nil
	}))

	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Positive(t, yields.Load())
}

func TestArtifactLoader_YieldErrorFailsLoad(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("a.json", artifactBytes(t, sampleDocs()))
	store.HideSize(true)

	cfg := artifactSettings("a.json")
	cfg.YieldEvery = 1
	boom := errors.New("boom")
	loader := NewArtifactLoader(store, cfg, WithLoaderYield(func(context.Context) error { return boom }))

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, domain.LoadFailed, loader.State())
}

// gatedFetcher holds every Open until release is closed.
type gatedFetcher struct {
	store   *memory.ArtifactStore
	release chan struct{}
	opens   atomic.Int32
}

func (f *gatedFetcher) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	f.opens.Add(1)
	<-f.release
	return f.store.Open(ctx, location)
}

func TestArtifactLoader_ConcurrentCallersShareOneAttempt(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("a.json", artifactBytes(t, sampleDocs()))
	gate := &gatedFetcher{store: store, release: make(chan struct{})}

	loader := NewArtifactLoader(gate, artifactSettings("a.json"))

	var wg sync.WaitGroup
	results := make([][]domain.Document, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs, err := loader.Load(context.Background())
			assert.NoError(t, err)
			results[i] = docs
		}(i)
	}

	require.Eventually(t, func() bool { return loader.State() == domain.LoadLoading }, time.Second, time.Millisecond)
	close(gate.release)
	wg.Wait()

	assert.Equal(t, int32(1), gate.opens.Load())
	for _, docs := range results {
		assert.Len(t, docs, 2)
	}
}

func TestArtifactLoader_CallerCancellationDoesNotAbortAttempt(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("a.json", artifactBytes(t, sampleDocs()))
	gate := &gatedFetcher{store: store, release: make(chan struct{})}
	loader := NewArtifactLoader(gate, artifactSettings("a.json"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool { return loader.State() == domain.LoadLoading }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(gate.release)
	docs, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, int32(1), gate.opens.Load())
}

func TestArtifactLoader_ReloadKeepsDocumentsOnFailure(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("a.json", artifactBytes(t, sampleDocs()))
	loader := NewArtifactLoader(store, artifactSettings("a.json"))

	_, err := loader.Load(context.Background())
	require.NoError(t, err)

	store.Put("a.json", []byte("garbage"))
	docs, err := loader.Reload(context.Background())
	assert.ErrorIs(t, err, domain.ErrArtifactMalformed)
	assert.Len(t, docs, 2)
	assert.Equal(t, domain.LoadLoaded, loader.State())

	store.Put("a.json", artifactBytes(t, sampleDocs()[:1]))
	docs, err = loader.Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Len(t, loader.Documents(), 1)
}

func TestDecodeArtifact_FlagsMalformedEntries(t *testing.T) {
	payload := `[
		{"id":0,"title":"A","content":"a","path":"/a/","anchors":[]},
		{"id":1,"title":5,"content":"b","path":"/b/","anchors":[]},
		{"id":2,"content":"c","path":"/c/"},
		{"id":7,"title":"D","content":"d","path":"/d/"},
		{"id":4,"title":"E","content":"e","path":"/e/","anchors":[{"id":"bad id","text":"x"}]},
		"not an object",
		{"id":6,"title":"G","content":"g","path":"/g/","anchors":[{"id":"g","text":"G"}],"extra":true}
	]`

	docs, err := DecodeArtifact([]byte(payload))
	require.NoError(t, err)
	require.Len(t, docs, 7)

	want := []bool{false, true, true, true, true, true, false}
	for i, doc := range docs {
		assert.Equal(t, i, doc.ID, "ids stay dense")
		assert.Equal(t, want[i], doc.Malformed, "document %d", i)
	}
	assert.Equal(t, "G", docs[6].Title)
	assert.Equal(t, 0, docs[6].Anchors[0].Level)
}

func TestDecodeArtifact_EmptyArray(t *testing.T) {
	docs, err := DecodeArtifact([]byte(`[]`))
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}
