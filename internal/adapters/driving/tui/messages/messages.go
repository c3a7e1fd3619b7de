// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// QueryChanged is sent when the search query input changes.
type QueryChanged struct {
	Query string
}

// SearchDebounced fires once typing has paused. Seq identifies the
// keystroke that scheduled it; older ticks are ignored.
type SearchDebounced struct {
	Seq   uint64
	Query string
}

// SearchCompleted carries one query session's results back to the model.
type SearchCompleted struct {
	Response *domain.SearchResponse
	Err      error
}

// IndexWarmed is sent once the artifact and token map are ready.
type IndexWarmed struct {
	Status domain.SearchStatus
	Err    error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the search input and results view.
	ViewSearch ViewType = iota
	// ViewDocument shows a page's content.
	ViewDocument
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewDocument:
		return "document"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// DocumentSelected signals a page was chosen from the results.
// Anchor is the section to scroll to, or empty for the top.
type DocumentSelected struct {
	DocumentID int
	Anchor     string
}

// DocumentLoaded carries a page fetched for the document view.
type DocumentLoaded struct {
	Document *domain.Document
	Anchor   string
	Err      error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
