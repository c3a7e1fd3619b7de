package services

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockPageSource serves file contents from a map.
type mockPageSource struct {
	files   map[string]string
	listErr error
	readErr map[string]error
	delay   time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func (m *mockPageSource) List(_ context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockPageSource) Read(_ context.Context, source string) ([]byte, error) {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		peak := m.maxActive.Load()
		if n <= peak || m.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(m.delay)

	if err := m.readErr[source]; err != nil {
		return nil, err
	}
	return []byte(m.files[source]), nil
}

// mockRegistry renders ".md" sources from canned pages keyed by source.
type mockRegistry struct {
	mu        sync.Mutex
	pages     map[string]domain.Page
	renderErr error
	rendered  []string
}

func (m *mockRegistry) Register(_ driven.PageRenderer) {}

func (m *mockRegistry) Supports(source string) bool {
	return path.Ext(source) == ".md"
}

func (m *mockRegistry) Render(_ context.Context, source string, _ []byte) (*domain.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rendered = append(m.rendered, source)
	if m.renderErr != nil {
		return nil, m.renderErr
	}
	page := m.pages[source]
	return &page, nil
}

func (m *mockRegistry) Extensions() []string {
	return []string{".md"}
}

// --- Helpers ---

func indexSettings() domain.IndexSettings {
	s := domain.DefaultSettings().Index
	s.Output = "out/search-index.json"
	return s
}

func sourceFor(pages map[string]domain.Page) *mockPageSource {
	files := make(map[string]string, len(pages))
	for name := range pages {
		files[name] = "# " + name
	}
	return &mockPageSource{files: files}
}

func heading(text string, level int, id string) domain.Heading {
	return domain.Heading{Text: text, Level: level, AnchorID: id}
}

// --- Tests ---

func TestIndexService_Build(t *testing.T) {
	pages := map[string]domain.Page{
		"guide/install.md": {
			Source: "guide/install.md", Path: "/guide/install.html", Title: "Installation",
			Content: "install the tool",
			Headings: []domain.Heading{
				heading("Installation", 1, "installation"),
				heading("Requirements", 2, "requirements"),
				heading("Linux", 4, "linux"),
			},
		},
		"index.md": {
			Source: "index.md", Path: "/index.html", Title: "Welcome",
			Content: "welcome to the docs",
		},
	}
	source := sourceFor(pages)
	source.files["assets/logo.png"] = "png"
	store := memory.NewArtifactStore()
	svc := NewIndexService(source, &mockRegistry{pages: pages}, store, indexSettings())

	report, err := svc.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "out/search-index.json", report.Output)
	assert.Equal(t, 2, report.Pages)
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Anchors)
	assert.Equal(t, 1, report.DroppedAnchors)
	assert.Zero(t, report.Included)

	data, ok := store.Get("out/search-index.json")
	require.True(t, ok)
	docs, err := DecodeArtifact(data)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, domain.Document{
		ID: 0, Title: "Installation", Content: "install the tool", Path: "/guide/install.html",
		Anchors: []domain.Anchor{
			{ID: "installation", Text: "Installation", Level: 1},
			{ID: "requirements", Text: "Requirements", Level: 2},
		},
	}, docs[0])
	assert.Equal(t, 1, docs[1].ID)
	assert.Equal(t, "Welcome", docs[1].Title)
	assert.Empty(t, docs[1].Anchors)
}

func TestIndexService_Disabled(t *testing.T) {
	store := memory.NewArtifactStore()
	settings := indexSettings()
	settings.Enable = false
	registry := &mockRegistry{}
	svc := NewIndexService(sourceFor(nil), registry, store, settings)

	_, err := svc.Build(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexDisabled)

	_, err = svc.Documents(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexDisabled)

	_, written := store.Get(settings.Output)
	assert.False(t, written)
	assert.Empty(t, registry.rendered)
}

func TestIndexService_MergesIncludes(t *testing.T) {
	pages := map[string]domain.Page{
		"a.md": {
			Source: "a.md", Path: "/a.html", Title: "A", Content: "alpha",
			Headings: []domain.Heading{heading("Setup", 2, "setup")},
			Includes: []string{"parts/b.md"},
		},
		"parts/b.md": {
			Source: "parts/b.md", Path: "/parts/b.html", Title: "B", Content: "bravo",
			Headings: []domain.Heading{heading("Setup", 2, "setup"), heading("Deep", 5, "deep")},
			Includes: []string{"parts/c.md"},
		},
		"parts/c.md": {
			Source: "parts/c.md", Path: "/parts/c.html", Title: "C", Content: "charlie",
			Headings: []domain.Heading{heading("Charlie", 3, "charlie")},
		},
	}
	svc := NewIndexService(sourceFor(pages), &mockRegistry{pages: pages}, memory.NewArtifactStore(), indexSettings())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1, "included pages produce no documents")
	doc := docs[0]
	assert.Equal(t, 0, doc.ID)
	assert.Equal(t, "/a.html", doc.Path)
	assert.Equal(t, "alpha bravo charlie", doc.Content)
	assert.Equal(t, []domain.Anchor{
		{ID: "setup", Text: "Setup", Level: 2},
		{ID: "setup-1", Text: "Setup", Level: 2},
		{ID: "charlie", Text: "Charlie", Level: 3},
	}, doc.Anchors)
	require.NoError(t, doc.Validate(0))

	report, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 2, report.Included)
	assert.Equal(t, 1, report.DroppedAnchors)
}

func TestIndexService_MissingIncludeAndCycle(t *testing.T) {
	pages := map[string]domain.Page{
		"a.md": {Source: "a.md", Path: "/a.html", Title: "A", Content: "a", Includes: []string{"missing.md"}},
		"x.md": {Source: "x.md", Path: "/x.html", Title: "X", Content: "x", Includes: []string{"y.md"}},
		"y.md": {Source: "y.md", Path: "/y.html", Title: "Y", Content: "y", Includes: []string{"x.md"}},
	}
	svc := NewIndexService(sourceFor(pages), &mockRegistry{pages: pages}, memory.NewArtifactStore(), indexSettings())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 1)
	assert.Equal(t, "A", docs[0].Title)
	assert.Equal(t, "a", docs[0].Content)
}

func TestIndexService_MaxHeadingLevel(t *testing.T) {
	pages := map[string]domain.Page{
		"a.md": {
			Source: "a.md", Path: "/a.html", Title: "A",
			Headings: []domain.Heading{
				heading("One", 1, "one"),
				heading("Two", 2, "two"),
				heading("Three", 3, "three"),
			},
		},
	}
	settings := indexSettings()
	settings.MaxHeadingLevel = 1
	svc := NewIndexService(sourceFor(pages), &mockRegistry{pages: pages}, memory.NewArtifactStore(), settings)

	report, err := svc.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Anchors)
	assert.Equal(t, 2, report.DroppedAnchors)
}

func TestIndexService_InvalidAnchorSkipped(t *testing.T) {
	pages := map[string]domain.Page{
		"a.md": {
			Source: "a.md", Path: "/a.html", Title: "A",
			Headings: []domain.Heading{heading("Bad", 2, "has space"), heading("Good", 2, "good")},
		},
	}
	svc := NewIndexService(sourceFor(pages), &mockRegistry{pages: pages}, memory.NewArtifactStore(), indexSettings())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Anchor{{ID: "good", Text: "Good", Level: 2}}, docs[0].Anchors)
}

func TestIndexService_TitleFallback(t *testing.T) {
	pages := map[string]domain.Page{
		"a.md":           {Source: "a.md", Path: "/a.html", Headings: []domain.Heading{heading("First", 1, "first")}},
		"guide/intro.md": {Source: "guide/intro.md", Path: "/guide/intro.html"},
	}
	svc := NewIndexService(sourceFor(pages), &mockRegistry{pages: pages}, memory.NewArtifactStore(), indexSettings())

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "First", docs[0].Title)
	assert.Equal(t, "intro", docs[1].Title)
}

func TestIndexService_Errors(t *testing.T) {
	pages := map[string]domain.Page{"a.md": {Source: "a.md", Title: "A"}}

	t.Run("list", func(t *testing.T) {
		source := &mockPageSource{listErr: assert.AnError}
		svc := NewIndexService(source, &mockRegistry{}, memory.NewArtifactStore(), indexSettings())

		_, err := svc.Build(context.Background())
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("read", func(t *testing.T) {
		source := sourceFor(pages)
		source.readErr = map[string]error{"a.md": assert.AnError}
		svc := NewIndexService(source, &mockRegistry{pages: pages}, memory.NewArtifactStore(), indexSettings())

		_, err := svc.Build(context.Background())
		assert.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "read a.md")
	})

	t.Run("render", func(t *testing.T) {
		renderErr := errors.New("bad markup")
		svc := NewIndexService(sourceFor(pages), &mockRegistry{renderErr: renderErr}, memory.NewArtifactStore(), indexSettings())

		_, err := svc.Build(context.Background())
		assert.ErrorIs(t, err, renderErr)
	})

	t.Run("write", func(t *testing.T) {
		store := memory.NewArtifactStore()
		store.Fail("out/search-index.json", assert.AnError)
		svc := NewIndexService(sourceFor(pages), &mockRegistry{pages: pages}, store, indexSettings())

		_, err := svc.Build(context.Background())
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestIndexService_BoundedConcurrency(t *testing.T) {
	pages := make(map[string]domain.Page)
	for _, name := range []string{"a.md", "b.md", "c.md", "d.md", "e.md", "f.md"} {
		pages[name] = domain.Page{Source: name, Path: "/" + name, Title: name}
	}
	source := sourceFor(pages)
	source.delay = 5 * time.Millisecond
	settings := indexSettings()
	settings.Concurrency = 2
	svc := NewIndexService(source, &mockRegistry{pages: pages}, memory.NewArtifactStore(), settings)

	docs, err := svc.Documents(context.Background())
	require.NoError(t, err)

	assert.Len(t, docs, 6)
	assert.LessOrEqual(t, source.maxActive.Load(), int32(2))
	for i, doc := range docs {
		assert.Equal(t, i, doc.ID, "ids follow source order")
	}
	assert.Equal(t, "a.md", docs[0].Title)
	assert.Equal(t, "f.md", docs[5].Title)
}
