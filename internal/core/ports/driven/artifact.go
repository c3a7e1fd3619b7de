package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// ArtifactFetcher opens the index artifact at a candidate location.
type ArtifactFetcher interface {
	// Open returns a reader over the artifact and its size in bytes, or -1
	// when the size is not known up front. It returns an error wrapping
	// domain.ErrArtifactNotFound when nothing exists at location.
	// The caller closes the reader.
	Open(ctx context.Context, location string) (io.ReadCloser, int64, error)
}

// ArtifactWriter persists a document array as the index artifact.
type ArtifactWriter interface {
	// Write replaces the artifact at path. Readers never observe a
	// partially written file.
	Write(ctx context.Context, path string, docs []domain.Document) error
}

// ArtifactWatcher reports changes to a local artifact.
type ArtifactWatcher interface {
	// Watch emits on the returned channel after path has been replaced or
	// modified. Bursts of events are coalesced. The channel is closed when
	// ctx is done or the watcher is closed.
	Watch(ctx context.Context, path string) (<-chan struct{}, error)

	// Close releases the watcher.
	Close() error
}
