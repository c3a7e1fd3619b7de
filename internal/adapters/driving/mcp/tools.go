package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/samber/lo"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// defaultLimit is used when the caller does not ask for a result count.
const defaultLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query, typos are tolerated"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of pages to return (default 10)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results  []SearchResultOutput `json:"results"`
	Count    int                  `json:"count"`
	Strategy string               `json:"strategy"`
}

// SearchResultOutput represents a single matched page.
type SearchResultOutput struct {
	DocumentID int            `json:"document_id"`
	Title      string         `json:"title"`
	Path       string         `json:"path"`
	URI        string         `json:"uri"`
	Score      float64        `json:"score"`
	Snippet    string         `json:"snippet,omitempty"`
	Anchors    []AnchorOutput `json:"anchors,omitempty"`
}

// AnchorOutput is a matching section of a page.
type AnchorOutput struct {
	Text string `json:"text"`
	Path string `json:"path"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the documentation pages and their sections",
	}, s.handleSearch)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	resp, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{Limit: limit})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results:  make([]SearchResultOutput, len(resp.Matches)),
		Count:    len(resp.Matches),
		Strategy: string(resp.Strategy),
	}

	for i := range resp.Matches {
		m := &resp.Matches[i]
		output.Results[i] = SearchResultOutput{
			DocumentID: m.Document.ID,
			Title:      m.Document.Title,
			Path:       m.Document.Path,
			URI:        documentURI(m.Document.ID),
			Score:      m.PageScore,
			Snippet:    m.Snippet.String(),
			Anchors: lo.Map(m.MatchingAnchors, func(a domain.Anchor, _ int) AnchorOutput {
				return AnchorOutput{Text: a.Text, Path: m.Document.Link(a)}
			}),
		}
	}

	return nil, output, nil
}
