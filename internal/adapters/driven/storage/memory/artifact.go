package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// Ensure ArtifactStore implements the interfaces.
var (
	_ driven.ArtifactFetcher = (*ArtifactStore)(nil)
	_ driven.ArtifactWriter  = (*ArtifactStore)(nil)
)

// ArtifactStore keeps index artifacts in memory, keyed by location.
type ArtifactStore struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	failures map[string]error
	opens    map[string]int
	hideSize bool
}

// NewArtifactStore creates an empty in-memory artifact store.
func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{
		blobs:    make(map[string][]byte),
		failures: make(map[string]error),
		opens:    make(map[string]int),
	}
}

// Put stores raw artifact bytes at location.
func (s *ArtifactStore) Put(location string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[location] = append([]byte(nil), data...)
}

// Get returns the bytes stored at location.
func (s *ArtifactStore) Get(location string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[location]
	return data, ok
}

// Remove deletes the artifact at location.
func (s *ArtifactStore) Remove(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, location)
}

// Fail makes every Open or Write of location return err until cleared with a nil err.
func (s *ArtifactStore) Fail(location string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, location)
		return
	}
	s.failures[location] = err
}

// HideSize makes Open report an unknown size, as a chunked HTTP response does.
func (s *ArtifactStore) HideSize(hide bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hideSize = hide
}

// Opens returns how many times location was opened.
func (s *ArtifactStore) Opens(location string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opens[location]
}

// Open returns a reader over the artifact stored at location.
func (s *ArtifactStore) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.opens[location]++
	if err := s.failures[location]; err != nil {
		return nil, 0, err
	}
	data, ok := s.blobs[location]
	if !ok {
		return nil, 0, fmt.Errorf("%s: %w", location, domain.ErrArtifactNotFound)
	}

	size := int64(len(data))
	if s.hideSize {
		size = -1
	}
	return io.NopCloser(bytes.NewReader(data)), size, nil
}

// Write encodes docs as the artifact stored at path.
func (s *ArtifactStore) Write(ctx context.Context, path string, docs []domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	failure := s.failures[path]
	s.mu.RUnlock()
	if failure != nil {
		return failure
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	s.Put(path, data)
	return nil
}
