package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	matches  []domain.Match
	strategy domain.ExecutionStrategy
	err      error
	warmErr  error

	warmed    bool
	lastQuery string
	lastOpts  domain.SearchOptions
	latest    uint64
}

func (m *mockSearchService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	m.latest++
	return &domain.SearchResponse{
		Session:  domain.QuerySession{ID: m.latest, Query: query},
		Strategy: m.strategy,
		Matches:  m.matches,
	}, nil
}

func (m *mockSearchService) Warm(context.Context) error {
	m.warmed = true
	return m.warmErr
}

func (m *mockSearchService) Reload(context.Context) error { return nil }

func (m *mockSearchService) Document(_ context.Context, id int) (*domain.Document, error) {
	for i := range m.matches {
		if m.matches[i].Document.ID == id {
			return &m.matches[i].Document, nil
		}
	}
	return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
}

func (m *mockSearchService) Status() domain.SearchStatus {
	return domain.SearchStatus{Load: domain.LoadLoaded, Documents: len(m.matches)}
}

func (m *mockSearchService) LatestSession() uint64 { return m.latest }

// mockIndexService implements driving.IndexService for testing.
type mockIndexService struct {
	report *domain.BuildReport
	err    error
	built  int
}

func (m *mockIndexService) Build(context.Context) (*domain.BuildReport, error) {
	m.built++
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockIndexService) Documents(context.Context) ([]domain.Document, error) {
	return nil, m.err
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings domain.Settings
	getErr   error
	setErr   error
	set      map[string]string
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Path() string { return "/tmp/docsearch.toml" }

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	search   *mockSearchService
	index    *mockIndexService
	settings *mockSettingsService
	worker   *bytes.Buffer
}

func installationMatch() domain.Match {
	doc := domain.Document{
		ID:      1,
		Title:   "Installation",
		Path:    "/install.html",
		Content: "Install on Linux with the script.",
		Anchors: []domain.Anchor{{ID: "linux", Text: "Linux", Level: 2}},
	}
	return domain.Match{
		Document:        doc,
		PageScore:       53.37,
		MatchingAnchors: doc.Anchors,
		Snippet: domain.Snippet{
			Text:       "Install on Linux with the script.",
			Highlights: []domain.Span{{Start: 0, End: 7}},
		},
	}
}

// setupTestServices installs mock services and returns a cleanup function.
func setupTestServices() func() {
	ts := newTestServices()
	return ts.install()
}

func newTestServices() *testServices {
	return &testServices{
		search: &mockSearchService{
			matches:  []domain.Match{installationMatch()},
			strategy: domain.StrategyInline,
		},
		index: &mockIndexService{
			report: &domain.BuildReport{
				Output:    "public/assets/search-index.json",
				Pages:     3,
				Included:  1,
				Documents: 2,
				Anchors:   5,
				Duration:  12 * time.Millisecond,
			},
		},
		settings: &mockSettingsService{
			settings: domain.DefaultSettings(),
			set:      make(map[string]string),
		},
		worker: new(bytes.Buffer),
	}
}

func (ts *testServices) install() func() {
	old := services
	services = &Services{
		Search:   ts.search,
		Index:    ts.index,
		Settings: ts.settings,
		ServeWorker: func(_ context.Context, r io.Reader, w io.Writer) error {
			_, err := io.Copy(ts.worker, r)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, "ok\n")
			return err
		},
	}
	return func() {
		services = old
	}
}
