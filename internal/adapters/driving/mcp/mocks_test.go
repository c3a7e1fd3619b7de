package mcp

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response *domain.SearchResponse
	docs     []domain.Document
	status   domain.SearchStatus
	err      error

	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) (*domain.SearchResponse, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{Strategy: domain.StrategyInline}, nil
	}
	return m.response, nil
}

func (m *mockSearchService) Warm(_ context.Context) error {
	return m.err
}

func (m *mockSearchService) Reload(_ context.Context) error {
	return m.err
}

func (m *mockSearchService) Document(_ context.Context, id int) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if id < 0 || id >= len(m.docs) {
		return nil, fmt.Errorf("document %d: %w", id, domain.ErrNotFound)
	}
	return &m.docs[id], nil
}

func (m *mockSearchService) Status() domain.SearchStatus {
	return m.status
}

func (m *mockSearchService) LatestSession() uint64 {
	return 0
}
