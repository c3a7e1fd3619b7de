package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docsearch resources.
	uriScheme = "docsearch://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the index state.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Search index load and worker state",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	// Template for document content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Plain text of a documentation page",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)
}

// statusInfo is the JSON shape of the status resource.
type statusInfo struct {
	Load          string `json:"load"`
	Error         string `json:"error,omitempty"`
	Documents     int    `json:"documents"`
	TokenMapReady bool   `json:"token_map_ready"`
	Terms         int    `json:"terms"`
	Worker        string `json:"worker"`
	Generation    uint64 `json:"generation"`
}

// handleStatusResource reports the search service state.
func (s *Server) handleStatusResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	st := s.ports.Search.Status()
	info := statusInfo{
		Load:          st.Load.String(),
		Documents:     st.Documents,
		TokenMapReady: st.TokenMapReady,
		Terms:         st.Terms,
		Worker:        st.Worker.String(),
		Generation:    st.Generation,
	}
	if st.LoadError != nil {
		info.Error = st.LoadError.Error()
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleDocumentContentResource returns the content of a specific document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID, ok := extractDocumentID(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Search.Document(ctx, docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidDocument) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     documentText(doc),
		}},
	}, nil
}

// documentText renders a page as a title line, its path and the body.
func documentText(doc *domain.Document) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(doc.Title)
	b.WriteString("\n")
	b.WriteString(doc.Path)
	b.WriteString("\n\n")
	b.WriteString(doc.Content)
	return b.String()
}

// documentURI returns the resource URI of a document.
func documentURI(id int) string {
	return uriScheme + "documents/" + strconv.Itoa(id)
}

// extractDocumentID extracts the document ID from a URI like docsearch://documents/{documentId}.
func extractDocumentID(uri string) (int, bool) {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}

	id, err := strconv.Atoi(strings.TrimPrefix(uri, prefix))
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
