package services

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
	"github.com/custodia-labs/docsearch/internal/normalisers/slug"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService renders documentation pages into the index artifact.
type IndexService struct {
	source    driven.PageSource
	renderers driven.RendererRegistry
	writer    driven.ArtifactWriter
	settings  domain.IndexSettings
}

// NewIndexService creates a new index service.
func NewIndexService(
	source driven.PageSource,
	renderers driven.RendererRegistry,
	writer driven.ArtifactWriter,
	settings domain.IndexSettings,
) *IndexService {
	return &IndexService{
		source:    source,
		renderers: renderers,
		writer:    writer,
		settings:  settings,
	}
}

// buildStats accumulates counters for the report.
type buildStats struct {
	pages    int
	included int
	anchors  int
	dropped  int
}

// Build renders every input page and writes the artifact.
func (s *IndexService) Build(ctx context.Context) (*domain.BuildReport, error) {
	logger.Section("Index Build")
	started := time.Now()

	docs, stats, err := s.documents(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.writer.Write(ctx, s.settings.Output, docs); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	report := &domain.BuildReport{
		Output:         s.settings.Output,
		Pages:          stats.pages,
		Included:       stats.included,
		Documents:      len(docs),
		Anchors:        stats.anchors,
		DroppedAnchors: stats.dropped,
		Duration:       time.Since(started),
	}
	logger.Info("Wrote %d documents (%d anchors) to %s in %s",
		report.Documents, report.Anchors, report.Output, report.Duration)
	return report, nil
}

// Documents renders the input and returns the document array.
func (s *IndexService) Documents(ctx context.Context) ([]domain.Document, error) {
	docs, _, err := s.documents(ctx)
	return docs, err
}

func (s *IndexService) documents(ctx context.Context) ([]domain.Document, buildStats, error) {
	if !s.settings.Enable {
		return nil, buildStats{}, domain.ErrIndexDisabled
	}

	sources, err := s.source.List(ctx)
	if err != nil {
		return nil, buildStats{}, fmt.Errorf("list pages: %w", err)
	}
	sources = lo.Filter(sources, func(src string, _ int) bool {
		return s.renderers.Supports(src)
	})
	logger.Debug("Rendering %d pages with %d workers", len(sources), s.concurrency())

	pages, err := s.render(ctx, sources)
	if err != nil {
		return nil, buildStats{}, err
	}

	docs, stats := assemble(pages, s.settings.MaxHeadingLevel)
	return docs, stats, nil
}

func (s *IndexService) concurrency() int {
	if s.settings.Concurrency > 0 {
		return s.settings.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// render renders sources in parallel. The result keeps the order of sources.
func (s *IndexService) render(ctx context.Context, sources []string) ([]*domain.Page, error) {
	pages := make([]*domain.Page, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, src := range sources {
		g.Go(func() error {
			content, err := s.source.Read(gctx, src)
			if err != nil {
				return fmt.Errorf("read %s: %w", src, err)
			}
			page, err := s.renderers.Render(gctx, src, content)
			if err != nil {
				return fmt.Errorf("render %s: %w", src, err)
			}
			if page.Source == "" {
				page.Source = src
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pages, nil
}

// assemble turns rendered pages into documents. Pages included by another
// page are merged into it and produce no document of their own. Ids follow
// the order of pages.
func assemble(pages []*domain.Page, maxLevel int) ([]domain.Document, buildStats) {
	stats := buildStats{pages: len(pages)}

	bySource := lo.Associate(pages, func(p *domain.Page) (string, *domain.Page) {
		return p.Source, p
	})
	included := make(map[string]bool)
	for _, p := range pages {
		for _, inc := range p.Includes {
			if _, ok := bySource[inc]; !ok {
				logger.Warn("%s: included page %s not found", p.Source, inc)
				continue
			}
			included[inc] = true
		}
	}
	stats.included = len(included)

	docs := make([]domain.Document, 0, len(pages)-len(included))
	for _, p := range pages {
		if included[p.Source] {
			continue
		}

		m := merger{
			bySource: bySource,
			maxLevel: maxLevel,
			anchors:  []domain.Anchor{},
			slugs:    slug.New(),
		}
		m.merge(p, map[string]bool{})

		doc := domain.Document{
			ID:      len(docs),
			Title:   pageTitle(p),
			Content: strings.Join(m.content, " "),
			Path:    p.Path,
			Anchors: m.anchors,
		}
		stats.anchors += len(doc.Anchors)
		stats.dropped += m.dropped
		docs = append(docs, doc)
	}
	return docs, stats
}

// merger collects the anchors and body text of a page and, recursively,
// of the pages it includes.
type merger struct {
	bySource map[string]*domain.Page
	maxLevel int

	content []string
	anchors []domain.Anchor
	slugs   *slug.Slugger
	dropped int
}

func (m *merger) merge(p *domain.Page, visiting map[string]bool) {
	if visiting[p.Source] {
		logger.Warn("%s: include cycle, skipping", p.Source)
		return
	}
	visiting[p.Source] = true
	defer delete(visiting, p.Source)

	if body := strings.TrimSpace(p.Content); body != "" {
		m.content = append(m.content, body)
	}
	for _, h := range p.Headings {
		m.addHeading(p.Source, h)
	}
	for _, inc := range p.Includes {
		if child, ok := m.bySource[inc]; ok {
			m.merge(child, visiting)
		}
	}
}

func (m *merger) addHeading(source string, h domain.Heading) {
	if h.Level < domain.MinHeadingLevel || h.Level > m.maxLevel {
		m.dropped++
		return
	}
	if !domain.ValidFragment(h.AnchorID) {
		logger.Warn("%s: heading %q has invalid anchor %q, skipping", source, h.Text, h.AnchorID)
		m.dropped++
		return
	}

	// Ids repeated across included pages get numeric suffixes.
	id := m.slugs.Unique(h.AnchorID)

	m.anchors = append(m.anchors, domain.Anchor{ID: id, Text: h.Text, Level: h.Level})
}

// pageTitle returns the page title, falling back to the first heading and
// then to the file name.
func pageTitle(p *domain.Page) string {
	if title := strings.TrimSpace(p.Title); title != "" {
		return title
	}
	if len(p.Headings) > 0 {
		return p.Headings[0].Text
	}
	base := path.Base(p.Source)
	return strings.TrimSuffix(base, path.Ext(base))
}
