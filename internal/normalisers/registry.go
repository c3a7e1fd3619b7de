package normalisers

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driven"
	"github.com/custodia-labs/docsearch/internal/normalisers/html"
	"github.com/custodia-labs/docsearch/internal/normalisers/markdown"
)

// Ensure Registry implements the interface.
var _ driven.RendererRegistry = (*Registry)(nil)

// Registry dispatches source files to renderers by extension.
type Registry struct {
	mu          sync.RWMutex
	byExtension map[string]driven.PageRenderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExtension: make(map[string]driven.PageRenderer)}
}

// Default returns a registry with the Markdown and HTML renderers.
func Default() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(html.New())
	return r
}

// Register adds a renderer. A later registration wins for an extension.
func (r *Registry) Register(renderer driven.PageRenderer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range renderer.Extensions() {
		r.byExtension[strings.ToLower(ext)] = renderer
	}
}

// Supports reports whether some renderer handles source.
func (r *Registry) Supports(source string) bool {
	_, ok := r.lookup(source)
	return ok
}

// Render renders source with the renderer registered for its extension.
func (r *Registry) Render(ctx context.Context, source string, content []byte) (*domain.Page, error) {
	renderer, ok := r.lookup(source)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, source)
	}
	return renderer.Render(ctx, source, content)
}

// Extensions returns every handled extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := lo.Keys(r.byExtension)
	sort.Strings(exts)
	return exts
}

func (r *Registry) lookup(source string) (driven.PageRenderer, bool) {
	ext := strings.ToLower(path.Ext(source))
	if ext == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.byExtension[ext]
	return renderer, ok
}
