package driving

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// IndexService builds the index artifact from documentation sources.
type IndexService interface {
	// Build renders every input page and writes the artifact.
	// It returns domain.ErrIndexDisabled when building is switched off.
	Build(ctx context.Context) (*domain.BuildReport, error)

	// Documents renders the input and returns the document array
	// without writing it.
	Documents(ctx context.Context) ([]domain.Document, error)
}
