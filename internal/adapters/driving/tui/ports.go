// Package tui provides an interactive terminal user interface for docsearch.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides search capabilities.
	Search driving.SearchService

	// Limit caps the pages shown per query (0 uses the service default).
	Limit int
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(search driving.SearchService) *Ports {
	return &Ports{Search: search}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
