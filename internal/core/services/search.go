package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/engine"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// snapshot is one loaded document set with its derived indexes.
// The document slice is never modified once installed.
type snapshot struct {
	generation uint64
	docs       []domain.Document
	malformed  []int

	// plain has no token map and serves the fallback strategy.
	plain *engine.Engine

	// indexed is set once the token map is built.
	indexed   atomic.Pointer[engine.Engine]
	buildOnce sync.Once
	built     chan struct{}
}

// SearchService executes query sessions against the loaded artifact.
//
// Each query is routed to one of three strategies. Until the token map of the
// current snapshot exists, queries use the fallback scorer and the first one
// starts the build. Large corpora go to the background worker when one is
// configured and has not failed. Everything else runs inline.
type SearchService struct {
	loader   *ArtifactLoader
	settings domain.SearchSettings
	worker   driven.QueryWorker

	ctx    context.Context
	cancel context.CancelFunc

	installMu  sync.Mutex
	current    atomic.Pointer[snapshot]
	generation atomic.Uint64
	sessions   atomic.Uint64

	workerMu    sync.Mutex
	workerState domain.WorkerState
	workerGen   uint64

	pendingMu sync.Mutex
	pending   map[string]chan domain.WorkerResponse
}

// NewSearchService creates a new search service reading through loader.
func NewSearchService(loader *ArtifactLoader, settings domain.SearchSettings) *SearchService {
	ctx, cancel := context.WithCancel(context.Background())
	return &SearchService{
		loader:   loader,
		settings: settings,
		ctx:      ctx,
		cancel:   cancel,
		pending:  make(map[string]chan domain.WorkerResponse),
	}
}

// SetWorker sets the background worker used for large corpora.
// It must be called before the first Search.
func (s *SearchService) SetWorker(worker driven.QueryWorker) {
	s.worker = worker
}

// Close stops background work and the worker.
func (s *SearchService) Close() error {
	s.cancel()

	s.workerMu.Lock()
	defer s.workerMu.Unlock()
	if s.worker != nil && s.workerState == domain.WorkerActive {
		s.workerState = domain.WorkerDisabled
		return s.worker.Close()
	}
	return nil
}

// Search runs one query session.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	logger.Section("Search Execution")

	session := domain.QuerySession{
		ID:        s.sessions.Add(1),
		Query:     query,
		Terms:     engine.Tokenize(query),
		StartedAt: time.Now(),
	}
	logger.Debug("Session %d: query=%q terms=%v", session.ID, query, session.Terms)

	resp := &domain.SearchResponse{Session: session, Matches: []domain.Match{}}
	if strings.TrimSpace(query) == "" {
		logger.Debug("Empty query, returning no results")
		return resp, nil
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.settings.Limit
	}

	resp.Strategy = s.selectStrategy(snap)
	logger.Info("Strategy: %s (%d documents)", resp.Strategy.Description(), len(snap.docs))

	var matches []domain.Match
	switch resp.Strategy {
	case domain.StrategyWorker:
		matches, err = s.searchWorker(ctx, snap, query, limit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.disableWorker(err)
			resp.Strategy = domain.StrategyFallback
			matches, err = snap.plain.Fallback(query, limit)
		}
	case domain.StrategyInline:
		matches, err = snap.indexed.Load().Search(query, limit)
	default:
		matches, err = snap.plain.Fallback(query, limit)
	}
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}

	if opts.SnippetWidth > 0 && opts.SnippetWidth != s.settings.SnippetWidth {
		terms := snippetTerms(query)
		for i := range matches {
			matches[i].Snippet = engine.MakeSnippet(matches[i].Document.Content, terms, opts.SnippetWidth)
		}
	}

	resp.Matches = matches
	logger.Info("Session %d: %d results via %s in %s",
		session.ID, len(matches), resp.Strategy, time.Since(session.StartedAt))
	return resp, nil
}

// selectStrategy decides how a query against snap is executed. It is
// evaluated per query; only the switch to a disabled worker is permanent.
func (s *SearchService) selectStrategy(snap *snapshot) domain.ExecutionStrategy {
	if snap.indexed.Load() == nil {
		s.buildTokenMap(snap)
		return domain.StrategyFallback
	}
	if s.worker != nil && len(snap.docs) >= s.settings.WorkerThreshold && s.WorkerState() != domain.WorkerDisabled {
		return domain.StrategyWorker
	}
	return domain.StrategyInline
}

// Warm loads the artifact and waits for the token map.
func (s *SearchService) Warm(ctx context.Context) error {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return err
	}
	s.buildTokenMap(snap)

	select {
	case <-snap.built:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reload fetches the artifact again and installs it as a new snapshot.
// Queries already running finish on the snapshot they started with.
func (s *SearchService) Reload(ctx context.Context) error {
	docs, err := s.loader.Reload(ctx)
	if err != nil {
		return err
	}

	s.installMu.Lock()
	snap := s.install(docs)
	s.installMu.Unlock()

	s.buildTokenMap(snap)
	return nil
}

// Follow reloads on every signal from changes until ctx is done or the
// channel is closed.
func (s *SearchService) Follow(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := s.Reload(ctx); err != nil {
				logger.Warn("Reload failed: %v", err)
			}
		}
	}
}

// Document returns the document with the given id.
func (s *SearchService) Document(ctx context.Context, id int) (*domain.Document, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if id < 0 || id >= len(snap.docs) {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	doc := snap.docs[id]
	if doc.Malformed {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrInvalidDocument)
	}
	return &doc, nil
}

// Status reports loader, token map and worker state.
func (s *SearchService) Status() domain.SearchStatus {
	status := domain.SearchStatus{
		Load:      s.loader.State(),
		LoadError: s.loader.Err(),
		Worker:    s.WorkerState(),
	}
	if snap := s.current.Load(); snap != nil {
		status.Documents = len(snap.docs)
		status.Generation = snap.generation
		if e := snap.indexed.Load(); e != nil {
			status.TokenMapReady = true
			status.Terms = e.TokenMap().Len()
		}
	}
	return status
}

// LatestSession returns the id of the most recently started session.
func (s *SearchService) LatestSession() uint64 {
	return s.sessions.Load()
}

// WorkerState returns the worker handle state.
func (s *SearchService) WorkerState() domain.WorkerState {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()
	return s.workerState
}

// snapshot returns the current snapshot, loading the artifact on first use.
func (s *SearchService) snapshot(ctx context.Context) (*snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}

	docs, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	s.installMu.Lock()
	defer s.installMu.Unlock()
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.install(docs), nil
}

// install swaps in a snapshot for docs (caller must hold installMu).
func (s *SearchService) install(docs []domain.Document) *snapshot {
	snap := &snapshot{
		generation: s.generation.Add(1),
		docs:       docs,
		plain:      engine.New(docs, s.engineOptions()...),
		built:      make(chan struct{}),
	}
	for i := range docs {
		if docs[i].Malformed {
			snap.malformed = append(snap.malformed, i)
		}
	}
	s.current.Store(snap)
	logger.Debug("Installed snapshot %d with %d documents", snap.generation, len(docs))
	return snap
}

// buildTokenMap starts the token map build for snap once.
func (s *SearchService) buildTokenMap(snap *snapshot) {
	snap.buildOnce.Do(func() {
		started := time.Now()
		ch := engine.BuildTokenMapAsync(s.ctx, snap.docs, engine.BuildOptions{ChunkSize: s.settings.TokenChunkSize})
		go func() {
			tm := <-ch
			if tm.Documents() == 0 && len(snap.docs) > snap.skipped() {
				logger.Warn("Token map for snapshot %d is empty, queries scan every document", snap.generation)
			}
			snap.indexed.Store(engine.New(snap.docs, s.engineOptions(engine.WithTokenMap(tm))...))
			close(snap.built)
			logger.Debug("Token map for snapshot %d: %d terms in %s", snap.generation, tm.Len(), time.Since(started))
		}()
	})
}

// skipped returns the number of malformed documents in the snapshot.
func (snap *snapshot) skipped() int {
	return len(snap.malformed)
}

func (s *SearchService) engineOptions(extra ...engine.Option) []engine.Option {
	opts := []engine.Option{
		engine.WithWeights(s.settings.Weights),
		engine.WithPruning(s.settings.TokenMapPruning),
		engine.WithSnippetWidth(s.settings.SnippetWidth),
	}
	return append(opts, extra...)
}

// ensureWorker starts the worker on first use.
func (s *SearchService) ensureWorker() error {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()

	switch s.workerState {
	case domain.WorkerActive:
		return nil
	case domain.WorkerDisabled:
		return domain.ErrWorkerUnavailable
	}

	if err := s.worker.Start(s.ctx); err != nil {
		s.workerState = domain.WorkerDisabled
		logger.Warn("Worker failed to start, disabled: %v", err)
		return fmt.Errorf("%w: %w", domain.ErrWorkerUnavailable, err)
	}
	s.workerState = domain.WorkerActive
	go s.dispatchReplies(s.worker.Replies())
	logger.Debug("Worker started")
	return nil
}

// dispatchReplies routes worker responses to the session waiting on them.
// Replies nobody waits for any more are dropped.
func (s *SearchService) dispatchReplies(replies <-chan domain.WorkerResponse) {
	for resp := range replies {
		s.pendingMu.Lock()
		ch, ok := s.pending[resp.MessageID]
		delete(s.pending, resp.MessageID)
		s.pendingMu.Unlock()

		if !ok {
			logger.Debug("Dropping late worker reply %s", resp.MessageID)
			continue
		}
		ch <- resp
	}
	s.disableWorker(errors.New("worker exited"))
}

// disableWorker marks the worker unusable for the rest of the process.
func (s *SearchService) disableWorker(cause error) {
	s.workerMu.Lock()
	defer s.workerMu.Unlock()
	if s.workerState == domain.WorkerDisabled {
		return
	}
	wasActive := s.workerState == domain.WorkerActive
	s.workerState = domain.WorkerDisabled
	logger.Warn("Worker disabled, using fallback: %v", cause)
	if wasActive && s.worker != nil {
		go func() { _ = s.worker.Close() }()
	}
}

// searchWorker runs one query on the worker and waits for its reply for at
// most the configured timeout.
func (s *SearchService) searchWorker(
	ctx context.Context, snap *snapshot, query string, limit int,
) ([]domain.Match, error) {
	if err := s.ensureWorker(); err != nil {
		return nil, err
	}

	data := domain.WorkerSearchData{Query: query, Limit: limit, Generation: snap.generation}
	s.workerMu.Lock()
	sendDocs := s.workerGen != snap.generation
	s.workerMu.Unlock()
	if sendDocs {
		data.Documents = snap.docs
		data.Malformed = snap.malformed
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", domain.ErrWorkerFailed, err)
	}

	req := domain.WorkerRequest{
		MessageID: uuid.NewString(),
		Type:      domain.WorkerRequestSearch,
		Data:      payload,
	}
	reply := make(chan domain.WorkerResponse, 1)
	s.pendingMu.Lock()
	s.pending[req.MessageID] = reply
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, req.MessageID)
		s.pendingMu.Unlock()
	}()

	// The timeout covers handing the request over as well as the reply.
	wctx, cancel := context.WithTimeout(ctx, s.settings.WorkerTimeout)
	defer cancel()
	timeout := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w after %s", domain.ErrWorkerTimeout, s.settings.WorkerTimeout)
	}

	if err := s.worker.Send(wctx, req); err != nil {
		if wctx.Err() != nil {
			return nil, timeout()
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrWorkerUnavailable, err)
	}

	var resp domain.WorkerResponse
	select {
	case resp = <-reply:
	case <-wctx.Done():
		return nil, timeout()
	}

	switch resp.Type {
	case domain.WorkerResponseResults:
	case domain.WorkerResponseError:
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkerFailed, resp.Error)
	default:
		return nil, fmt.Errorf("%w: unexpected reply type %q", domain.ErrWorkerFailed, resp.Type)
	}

	var results domain.WorkerResultsData
	if err := json.Unmarshal(resp.Data, &results); err != nil {
		return nil, fmt.Errorf("%w: decode results: %w", domain.ErrWorkerFailed, err)
	}
	if results.Generation != snap.generation {
		return nil, fmt.Errorf("%w: reply for generation %d, want %d",
			domain.ErrWorkerFailed, results.Generation, snap.generation)
	}

	if sendDocs {
		s.workerMu.Lock()
		s.workerGen = snap.generation
		s.workerMu.Unlock()
	}
	return s.hydrate(snap, results.Matches, query), nil
}

// hydrate turns compact worker matches into full matches using the
// caller's own snapshot. Ids outside the snapshot are skipped.
func (s *SearchService) hydrate(snap *snapshot, compact []domain.WorkerMatch, query string) []domain.Match {
	terms := snippetTerms(query)
	matches := make([]domain.Match, 0, len(compact))
	for _, wm := range compact {
		if wm.DocumentID < 0 || wm.DocumentID >= len(snap.docs) {
			logger.Debug("Worker returned unknown document %d", wm.DocumentID)
			continue
		}
		doc := snap.docs[wm.DocumentID]
		anchors := lo.Filter(doc.Anchors, func(a domain.Anchor, _ int) bool {
			return lo.Contains(wm.AnchorIDs, a.ID)
		})
		if len(anchors) == 0 {
			anchors = nil
		}
		matches = append(matches, domain.Match{
			Document:        doc,
			PageScore:       wm.PageScore,
			MatchingAnchors: anchors,
			Snippet:         engine.MakeSnippet(doc.Content, terms, s.settings.SnippetWidth),
		})
	}
	return matches
}

// snippetTerms returns the terms highlighted for query: its tokens, or the
// whole lower-cased query when it has none.
func snippetTerms(query string) []string {
	if terms := engine.Tokenize(query); len(terms) > 0 {
		return terms
	}
	return []string{strings.ToLower(strings.TrimSpace(query))}
}
