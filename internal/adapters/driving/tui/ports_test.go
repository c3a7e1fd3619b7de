package tui

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	SearchFunc func(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.Match, error)
	WarmErr    error
	Docs       map[int]domain.Document

	latest uint64
	warmed bool
}

func (m *MockSearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.latest++
	resp := &domain.SearchResponse{
		Session:  domain.QuerySession{ID: m.latest, Query: query},
		Strategy: domain.StrategyInline,
	}
	if m.SearchFunc != nil {
		matches, err := m.SearchFunc(ctx, query, opts)
		if err != nil {
			return nil, err
		}
		resp.Matches = matches
	}
	return resp, nil
}

func (m *MockSearchService) Warm(context.Context) error {
	m.warmed = true
	return m.WarmErr
}

func (m *MockSearchService) Reload(context.Context) error { return nil }

func (m *MockSearchService) Document(_ context.Context, id int) (*domain.Document, error) {
	doc, ok := m.Docs[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

func (m *MockSearchService) Status() domain.SearchStatus {
	return domain.SearchStatus{Load: domain.LoadLoaded, Documents: len(m.Docs)}
}

func (m *MockSearchService) LatestSession() uint64 { return m.latest }

func TestNewPorts(t *testing.T) {
	search := &MockSearchService{}

	ports := NewPorts(search)

	require.NotNil(t, ports)
	assert.Equal(t, search, ports.Search)
	assert.Zero(t, ports.Limit)
}

func TestPorts_Validate(t *testing.T) {
	t.Run("valid ports", func(t *testing.T) {
		assert.NoError(t, NewPorts(&MockSearchService{}).Validate())
	})

	t.Run("missing search service", func(t *testing.T) {
		err := (&Ports{}).Validate()
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})
}
