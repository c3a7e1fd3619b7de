package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/engine"
)

// --- Mock implementations ---

// mockWorker implements driven.QueryWorker. handle decides the reply to each
// request; returning false sends nothing.
type mockWorker struct {
	mu       sync.Mutex
	startErr error
	starts   int
	closed   bool
	replies  chan domain.WorkerResponse
	requests []domain.WorkerRequest
	handle   func(req domain.WorkerRequest) (domain.WorkerResponse, bool)
}

func (m *mockWorker) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.replies = make(chan domain.WorkerResponse, 16)
	return nil
}

func (m *mockWorker) Send(_ context.Context, req domain.WorkerRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.handle == nil || m.closed {
		return nil
	}
	if resp, ok := m.handle(req); ok {
		m.replies <- resp
	}
	return nil
}

func (m *mockWorker) Replies() <-chan domain.WorkerResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replies
}

func (m *mockWorker) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed && m.replies != nil {
		m.closed = true
		close(m.replies)
	}
	return nil
}

func (m *mockWorker) sent() []domain.WorkerRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.WorkerRequest(nil), m.requests...)
}

func (m *mockWorker) startCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts
}

// engineHandler answers search requests with a real engine, keeping the
// documents of the last generation it was sent.
func engineHandler() func(domain.WorkerRequest) (domain.WorkerResponse, bool) {
	var gen uint64
	var eng *engine.Engine
	return func(req domain.WorkerRequest) (domain.WorkerResponse, bool) {
		var data domain.WorkerSearchData
		if err := json.Unmarshal(req.Data, &data); err != nil {
			return domain.WorkerResponse{MessageID: req.MessageID, Type: domain.WorkerResponseError, Error: err.Error()}, true
		}
		if data.Documents != nil {
			gen, eng = data.Generation, engine.New(data.Documents)
		}
		if eng == nil || gen != data.Generation {
			return domain.WorkerResponse{MessageID: req.MessageID, Type: domain.WorkerResponseError, Error: "unknown generation"}, true
		}
		matches, _ := eng.Search(data.Query, data.Limit)
		compact := make([]domain.WorkerMatch, 0, len(matches))
		for _, m := range matches {
			wm := domain.WorkerMatch{DocumentID: m.Document.ID, PageScore: m.PageScore}
			for _, a := range m.MatchingAnchors {
				wm.AnchorIDs = append(wm.AnchorIDs, a.ID)
			}
			compact = append(compact, wm)
		}
		payload, _ := json.Marshal(domain.WorkerResultsData{Generation: gen, Matches: compact})
		return domain.WorkerResponse{MessageID: req.MessageID, Type: domain.WorkerResponseResults, Data: payload}, true
	}
}

// --- Helpers ---

func testSearchSettings() domain.SearchSettings {
	return domain.DefaultSettings().Search
}

func newTestSearchService(
	t *testing.T, docs []domain.Document, settings domain.SearchSettings,
) (*SearchService, *memory.ArtifactStore) {
	t.Helper()
	store := memory.NewArtifactStore()
	if docs != nil {
		store.Put("index.json", artifactBytes(t, docs))
	}
	svc := NewSearchService(NewArtifactLoader(store, artifactSettings("index.json")), settings)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

func titles(matches []domain.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Document.Title
	}
	return out
}

// --- Tests ---

func TestSearchService_EmptyQuery(t *testing.T) {
	svc, store := newTestSearchService(t, sampleDocs(), testSearchSettings())

	resp, err := svc.Search(context.Background(), "   ", domain.SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, resp.Matches)
	assert.NotNil(t, resp.Matches)
	assert.Equal(t, 0, store.Opens("index.json"), "empty query does not load")
}

func TestSearchService_FallbackUntilTokenMapThenInline(t *testing.T) {
	svc, _ := newTestSearchService(t, sampleDocs(), testSearchSettings())
	ctx := context.Background()

	resp, err := svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFallback, resp.Strategy)
	assert.Equal(t, []string{"Installation Requirements", "Getting Started"}, titles(resp.Matches))
	assert.Equal(t, 10.0, resp.Matches[0].PageScore)

	require.NoError(t, svc.Warm(ctx))

	resp, err = svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyInline, resp.Strategy)
	assert.Equal(t, []string{"Installation Requirements", "Getting Started"}, titles(resp.Matches))
	assert.InDelta(t, 53.37, resp.Matches[0].PageScore, 0.01)
}

func TestSearchService_LoadFailureIsRetryable(t *testing.T) {
	svc, store := newTestSearchService(t, nil, testSearchSettings())
	ctx := context.Background()

	_, err := svc.Search(ctx, "install", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	assert.Equal(t, domain.LoadFailed, svc.Status().Load)

	store.Put("index.json", artifactBytes(t, sampleDocs()))

	resp, err := svc.Search(ctx, "install", domain.SearchOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Matches)
	assert.Equal(t, domain.LoadLoaded, svc.Status().Load)
}

func TestSearchService_LimitAndSnippetWidth(t *testing.T) {
	docs := make([]domain.Document, 6)
	for i := range docs {
		docs[i] = domain.Document{ID: i, Title: "Install", Content: "install " + string(rune('a'+i)) + " and more words here", Path: "/"}
	}
	settings := testSearchSettings()
	settings.Limit = 4
	svc, _ := newTestSearchService(t, docs, settings)
	require.NoError(t, svc.Warm(context.Background()))

	resp, err := svc.Search(context.Background(), "install", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 4, "default limit from settings")

	resp, err = svc.Search(context.Background(), "install", domain.SearchOptions{Limit: 2, SnippetWidth: 10})
	require.NoError(t, err)
	require.Len(t, resp.Matches, 2)
	assert.LessOrEqual(t, len(resp.Matches[0].Snippet.Text), 10)
	assert.True(t, resp.Matches[0].Snippet.Suffix)
}

func TestSearchService_WorkerMatchesInline(t *testing.T) {
	settings := testSearchSettings()
	settings.WorkerThreshold = 2
	svc, _ := newTestSearchService(t, sampleDocs(), settings)
	worker := &mockWorker{handle: engineHandler()}
	svc.SetWorker(worker)
	ctx := context.Background()

	require.NoError(t, svc.Warm(ctx))

	resp, err := svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyWorker, resp.Strategy)
	assert.Equal(t, domain.WorkerActive, svc.WorkerState())
	assert.Equal(t, []string{"Installation Requirements", "Getting Started"}, titles(resp.Matches))
	assert.InDelta(t, 53.37, resp.Matches[0].PageScore, 0.01)
	assert.NotEmpty(t, resp.Matches[0].Snippet.Text)

	resp, err = svc.Search(ctx, "requirements", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyWorker, resp.Strategy)
	require.NotEmpty(t, resp.Matches)
	assert.Equal(t, []domain.Anchor{{ID: "reqs", Text: "Requirements", Level: 2}}, resp.Matches[0].MatchingAnchors)

	reqs := worker.sent()
	require.Len(t, reqs, 2)
	for i, req := range reqs {
		assert.Equal(t, domain.WorkerRequestSearch, req.Type)
		assert.NotEmpty(t, req.MessageID)

		var data domain.WorkerSearchData
		require.NoError(t, json.Unmarshal(req.Data, &data))
		if i == 0 {
			assert.Len(t, data.Documents, 2, "documents sent with the first request")
		} else {
			assert.Nil(t, data.Documents, "documents not resent for the same generation")
		}
	}
	assert.NotEqual(t, reqs[0].MessageID, reqs[1].MessageID)
	assert.Equal(t, 1, worker.startCount())
}

func TestSearchService_WorkerTimeoutDisablesWorker(t *testing.T) {
	settings := testSearchSettings()
	settings.WorkerThreshold = 1
	settings.WorkerTimeout = 20 * time.Millisecond
	svc, _ := newTestSearchService(t, sampleDocs(), settings)
	worker := &mockWorker{} // never replies
	svc.SetWorker(worker)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	resp, err := svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFallback, resp.Strategy)
	assert.NotEmpty(t, resp.Matches, "query still answered")
	assert.Equal(t, domain.WorkerDisabled, svc.WorkerState())

	resp, err = svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyInline, resp.Strategy)
	assert.Len(t, worker.sent(), 1, "disabled worker is never used again")
}

func TestSearchService_WorkerErrorReplyDisablesWorker(t *testing.T) {
	settings := testSearchSettings()
	settings.WorkerThreshold = 1
	svc, _ := newTestSearchService(t, sampleDocs(), settings)
	svc.SetWorker(&mockWorker{handle: func(req domain.WorkerRequest) (domain.WorkerResponse, bool) {
		return domain.WorkerResponse{MessageID: req.MessageID, Type: domain.WorkerResponseError, Error: "boom"}, true
	}})
	require.NoError(t, svc.Warm(context.Background()))

	resp, err := svc.Search(context.Background(), "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFallback, resp.Strategy)
	assert.Equal(t, domain.WorkerDisabled, svc.WorkerState())
}

func TestSearchService_WorkerStaleGenerationDisablesWorker(t *testing.T) {
	settings := testSearchSettings()
	settings.WorkerThreshold = 1
	svc, _ := newTestSearchService(t, sampleDocs(), settings)
	svc.SetWorker(&mockWorker{handle: func(req domain.WorkerRequest) (domain.WorkerResponse, bool) {
		payload, _ := json.Marshal(domain.WorkerResultsData{Generation: 99})
		return domain.WorkerResponse{MessageID: req.MessageID, Type: domain.WorkerResponseResults, Data: payload}, true
	}})
	require.NoError(t, svc.Warm(context.Background()))

	resp, err := svc.Search(context.Background(), "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyFallback, resp.Strategy)
	assert.Equal(t, domain.WorkerDisabled, svc.WorkerState())
}

func TestSearchService_WorkerStartFailure(t *testing.T) {
	settings := testSearchSettings()
	settings.WorkerThreshold = 1
	svc, _ := newTestSearchService(t, sampleDocs(), settings)
	worker := &mockWorker{startErr: assert.AnError}
	svc.SetWorker(worker)
	require.NoError(t, svc.Warm(context.Background()))

	for i := 0; i < 2; i++ {
		resp, err := svc.Search(context.Background(), "instal", domain.SearchOptions{})
		require.NoError(t, err)
		assert.NotEqual(t, domain.StrategyWorker, resp.Strategy)
	}
	assert.Equal(t, 1, worker.startCount())
	assert.Equal(t, domain.WorkerDisabled, svc.WorkerState())
}

func TestSearchService_BelowThresholdRunsInline(t *testing.T) {
	svc, _ := newTestSearchService(t, sampleDocs(), testSearchSettings())
	worker := &mockWorker{handle: engineHandler()}
	svc.SetWorker(worker)
	require.NoError(t, svc.Warm(context.Background()))

	resp, err := svc.Search(context.Background(), "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyInline, resp.Strategy)
	assert.Equal(t, 0, worker.startCount())
	assert.Equal(t, domain.WorkerUnattempted, svc.WorkerState())
}

func TestSearchService_ReloadSwapsSnapshot(t *testing.T) {
	settings := testSearchSettings()
	settings.WorkerThreshold = 1
	svc, store := newTestSearchService(t, sampleDocs(), settings)
	worker := &mockWorker{handle: engineHandler()}
	svc.SetWorker(worker)
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	_, err := svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), svc.Status().Generation)

	store.Put("index.json", artifactBytes(t, []domain.Document{
		{ID: 0, Title: "Upgrading", Content: "upgrade notes", Path: "/upgrade/"},
	}))
	require.NoError(t, svc.Reload(ctx))
	require.NoError(t, svc.Warm(ctx))
	assert.Equal(t, uint64(2), svc.Status().Generation)
	assert.Equal(t, 1, svc.Status().Documents)

	resp, err := svc.Search(ctx, "upgrade", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyWorker, resp.Strategy)
	assert.Equal(t, []string{"Upgrading"}, titles(resp.Matches))

	reqs := worker.sent()
	var last domain.WorkerSearchData
	require.NoError(t, json.Unmarshal(reqs[len(reqs)-1].Data, &last))
	assert.Equal(t, uint64(2), last.Generation)
	assert.Len(t, last.Documents, 1, "new generation resends documents")
}

func TestSearchService_ReloadFailureKeepsSnapshot(t *testing.T) {
	svc, store := newTestSearchService(t, sampleDocs(), testSearchSettings())
	ctx := context.Background()
	require.NoError(t, svc.Warm(ctx))

	store.Put("index.json", []byte("{"))
	assert.ErrorIs(t, svc.Reload(ctx), domain.ErrArtifactMalformed)

	assert.Equal(t, uint64(1), svc.Status().Generation)
	resp, err := svc.Search(ctx, "instal", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 2)
}

func TestSearchService_Follow(t *testing.T) {
	svc, store := newTestSearchService(t, sampleDocs(), testSearchSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Warm(ctx))

	changes := make(chan struct{})
	done := make(chan struct{})
	go func() {
		svc.Follow(ctx, changes)
		close(done)
	}()

	store.Put("index.json", artifactBytes(t, sampleDocs()[:1]))
	changes <- struct{}{}

	require.Eventually(t, func() bool { return svc.Status().Generation == 2 }, time.Second, time.Millisecond)
	close(changes)
	<-done
}

func TestSearchService_Document(t *testing.T) {
	// The second entry has the wrong id, so it decodes as malformed.
	data := []byte(`[` + string(mustJSON(t, sampleDocs()[0])) + `,{"id":9,"title":"x","content":"x","path":"/x/"}]`)

	store := memory.NewArtifactStore()
	store.Put("index.json", data)
	svc := NewSearchService(NewArtifactLoader(store, artifactSettings("index.json")), testSearchSettings())
	defer svc.Close()

	doc, err := svc.Document(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "Getting Started", doc.Title)

	_, err = svc.Document(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)

	_, err = svc.Document(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Document(context.Background(), -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestSearchService_StatusAndSessions(t *testing.T) {
	svc, _ := newTestSearchService(t, sampleDocs(), testSearchSettings())
	ctx := context.Background()

	status := svc.Status()
	assert.Equal(t, domain.LoadNotLoaded, status.Load)
	assert.False(t, status.TokenMapReady)

	require.NoError(t, svc.Warm(ctx))
	status = svc.Status()
	assert.Equal(t, domain.LoadLoaded, status.Load)
	assert.True(t, status.TokenMapReady)
	assert.Equal(t, 2, status.Documents)
	assert.Positive(t, status.Terms)

	first, err := svc.Search(ctx, "install", domain.SearchOptions{})
	require.NoError(t, err)
	second, err := svc.Search(ctx, "guide", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Greater(t, second.Session.ID, first.Session.ID)
	assert.Equal(t, second.Session.ID, svc.LatestSession())
	assert.True(t, first.IsStale(svc.LatestSession()))
	assert.False(t, second.IsStale(svc.LatestSession()))
	assert.Equal(t, []string{"guide"}, second.Session.Terms)
}

func TestSearchService_SkipsMalformedDocuments(t *testing.T) {
	store := memory.NewArtifactStore()
	store.Put("index.json", []byte(`[
		{"id":0,"title":"Install","content":"install","path":"/a/"},
		{"id":1,"title":7,"content":"install","path":"/b/"}
	]`))
	svc := NewSearchService(NewArtifactLoader(store, artifactSettings("index.json")), testSearchSettings())
	defer svc.Close()
	ctx := context.Background()

	resp, err := svc.Search(ctx, "install", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 1, "fallback skips malformed")

	require.NoError(t, svc.Warm(ctx))
	resp, err = svc.Search(ctx, "install", domain.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, resp.Matches, 1, "inline skips malformed")
}
