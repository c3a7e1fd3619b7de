package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search runs one query session. The artifact is loaded on first use.
	// Load failures surface as domain.ErrSearchUnavailable and are retried
	// on the next call.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)

	// Warm loads the artifact and waits for the token map to be built.
	Warm(ctx context.Context) error

	// Reload loads the artifact again and swaps it in atomically.
	Reload(ctx context.Context) error

	// Document returns the document with the given id.
	Document(ctx context.Context, id int) (*domain.Document, error)

	// Status reports loader, token map and worker state.
	Status() domain.SearchStatus

	// LatestSession returns the id of the most recently started session.
	// A response whose session is older is stale.
	LatestSession() uint64
}
