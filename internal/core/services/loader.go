package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/engine"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// readChunkSize is the size of a single read from the artifact stream.
const readChunkSize = 32 * domain.KiB

// ArtifactLoader fetches and decodes the index artifact.
//
// It moves NotLoaded -> Loading -> Loaded | LoadFailed. LoadFailed is not
// terminal: the next Load starts a fresh attempt. Concurrent callers share
// one in-flight attempt.
type ArtifactLoader struct {
	fetcher    driven.ArtifactFetcher
	locations  []string
	eagerLimit int64
	yieldEvery int
	yield      engine.Yielder

	mu       sync.Mutex
	state    domain.LoadState
	docs     []domain.Document
	lastErr  error
	inflight *loadCall
}

type loadCall struct {
	done chan struct{}
	docs []domain.Document
	err  error
}

// LoaderOption configures an ArtifactLoader.
type LoaderOption func(*ArtifactLoader)

// WithLoaderYield replaces the cooperative yield used during chunked reads.
func WithLoaderYield(y engine.Yielder) LoaderOption {
	return func(l *ArtifactLoader) { l.yield = y }
}

// NewArtifactLoader creates a loader reading from fetcher at the configured
// candidate locations.
func NewArtifactLoader(fetcher driven.ArtifactFetcher, cfg domain.ArtifactSettings, opts ...LoaderOption) *ArtifactLoader {
	l := &ArtifactLoader{
		fetcher:    fetcher,
		locations:  append([]string(nil), cfg.Locations...),
		eagerLimit: cfg.EagerLimit,
		yieldEvery: cfg.YieldEvery,
		yield:      engine.CooperativeYield,
	}
	if l.eagerLimit <= 0 {
		l.eagerLimit = domain.MiB
	}
	if l.yieldEvery <= 0 {
		l.yieldEvery = 100 * domain.KiB
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current loader state.
func (l *ArtifactLoader) State() domain.LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the error of the last failed attempt.
func (l *ArtifactLoader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Documents returns the loaded documents, or nil before the first success.
func (l *ArtifactLoader) Documents() []domain.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.docs
}

// Load returns the documents, fetching them if they are not loaded yet.
// Failures wrap domain.ErrSearchUnavailable together with the cause.
func (l *ArtifactLoader) Load(ctx context.Context) ([]domain.Document, error) {
	return l.load(ctx, false)
}

// Reload fetches the artifact again. On failure the previously loaded
// documents stay in place and the loader remains Loaded.
func (l *ArtifactLoader) Reload(ctx context.Context) ([]domain.Document, error) {
	return l.load(ctx, true)
}

func (l *ArtifactLoader) load(ctx context.Context, force bool) ([]domain.Document, error) {
	l.mu.Lock()
	if l.state == domain.LoadLoaded && !force {
		docs := l.docs
		l.mu.Unlock()
		return docs, nil
	}
	call := l.inflight
	if call == nil {
		call = &loadCall{done: make(chan struct{})}
		l.inflight = call
		if l.state != domain.LoadLoaded {
			l.state = domain.LoadLoading
		}
		l.lastErr = nil
		logger.Debug("artifact: loading from %v", l.locations)
		go l.run(context.WithoutCancel(ctx), call)
	}
	l.mu.Unlock()

	select {
	case <-call.done:
		return call.docs, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *ArtifactLoader) run(ctx context.Context, call *loadCall) {
	docs, err := l.fetchFirst(ctx)

	l.mu.Lock()
	switch {
	case err == nil:
		l.docs = docs
		l.state = domain.LoadLoaded
		logger.Info("artifact: loaded %d documents", len(docs))
	case l.state == domain.LoadLoaded:
		logger.Warn("artifact: reload failed, keeping %d documents: %v", len(l.docs), err)
		err = fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
		docs = l.docs
	default:
		l.state = domain.LoadFailed
		l.lastErr = err
		logger.Warn("artifact: load failed: %v", err)
		err = fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}
	l.inflight = nil
	l.mu.Unlock()

	call.docs, call.err = docs, err
	close(call.done)
}

// fetchFirst tries every candidate location in order and decodes the first
// one that opens.
func (l *ArtifactLoader) fetchFirst(ctx context.Context) ([]domain.Document, error) {
	var errs []error
	for _, location := range l.locations {
		rc, size, err := l.fetcher.Open(ctx, location)
		if err != nil {
			logger.Debug("artifact: %s: %v", location, err)
			errs = append(errs, err)
			continue
		}

		data, err := l.read(ctx, rc, size)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", location, err)
		}

		docs, err := DecodeArtifact(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", location, err)
		}
		return docs, nil
	}
	if len(errs) == 0 {
		return nil, domain.ErrArtifactNotFound
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrArtifactNotFound, errors.Join(errs...))
}

// read buffers the whole payload. Payloads below the eager limit are read in
// one step; larger or unsized ones are read in chunks, yielding after every
// yieldEvery accumulated bytes.
func (l *ArtifactLoader) read(ctx context.Context, r io.Reader, size int64) ([]byte, error) {
	if size >= 0 && size < l.eagerLimit {
		return io.ReadAll(r)
	}

	var buf bytes.Buffer
	if size > 0 {
		buf.Grow(int(size))
	}
	chunk := make([]byte, readChunkSize)
	pending := 0
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			pending += n
			for pending >= l.yieldEvery {
				pending -= l.yieldEvery
				if yerr := l.yield(ctx); yerr != nil {
					return nil, yerr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// artifactEntry mirrors domain.Document with every required field
// distinguishable from its zero value.
type artifactEntry struct {
	ID      *int            `json:"id"`
	Title   *string         `json:"title"`
	Content *string         `json:"content"`
	Path    *string         `json:"path"`
	Anchors []domain.Anchor `json:"anchors"`
}

// DecodeArtifact parses a JSON document array. A payload that is not an
// array fails with domain.ErrArtifactMalformed. Individual entries that fail
// shape validation are kept in place, flagged Malformed, and logged.
func DecodeArtifact(data []byte) ([]domain.Document, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrArtifactMalformed, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: not a document array", domain.ErrArtifactMalformed)
	}

	docs := make([]domain.Document, len(raw))
	malformed := 0
	for i, msg := range raw {
		doc, err := decodeEntry(msg, i)
		if err != nil {
			malformed++
			logger.Warn("artifact: document %d: %v", i, err)
			doc = domain.Document{ID: i, Malformed: true}
		}
		docs[i] = doc
	}
	if malformed > 0 {
		logger.Warn("artifact: %d of %d documents malformed", malformed, len(docs))
	}
	return docs, nil
}

func decodeEntry(msg json.RawMessage, position int) (domain.Document, error) {
	var e artifactEntry
	if err := json.Unmarshal(msg, &e); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}
	if e.ID == nil || e.Title == nil || e.Content == nil || e.Path == nil {
		return domain.Document{}, fmt.Errorf("%w: missing required field", domain.ErrInvalidDocument)
	}

	doc := domain.Document{
		ID:      *e.ID,
		Title:   *e.Title,
		Content: *e.Content,
		Path:    *e.Path,
		Anchors: e.Anchors,
	}
	if err := doc.Validate(position); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}
