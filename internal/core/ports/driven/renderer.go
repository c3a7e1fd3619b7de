package driven

import (
	"context"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// PageRenderer turns one documentation source file into a rendered page.
type PageRenderer interface {
	// Extensions returns the file extensions handled, including the dot.
	Extensions() []string

	// Render converts content read from source into plain text with its
	// headings. Include directives are reported in Page.Includes and left
	// for the builder to resolve.
	Render(ctx context.Context, source string, content []byte) (*domain.Page, error)
}

// RendererRegistry dispatches files to renderers by extension.
type RendererRegistry interface {
	// Register adds a renderer. A later registration wins for an extension.
	Register(renderer PageRenderer)

	// Supports reports whether some renderer handles source.
	Supports(source string) bool

	// Render renders source with the matching renderer. It returns
	// domain.ErrUnsupportedFormat when none matches.
	Render(ctx context.Context, source string, content []byte) (*domain.Page, error)

	// Extensions returns every handled extension, sorted.
	Extensions() []string
}

// PageSource provides the documentation input tree.
type PageSource interface {
	// List returns every file under the input root as slash-separated
	// paths relative to it, sorted.
	List(ctx context.Context) ([]string, error)

	// Read returns the contents of a listed file.
	Read(ctx context.Context, source string) ([]byte, error)
}
