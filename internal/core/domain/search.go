package domain

import (
	"html"
	"strings"
	"time"
)

// SearchOptions configures a search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// SnippetWidth is the snippet window size in bytes (0 uses the default).
	SnippetWidth int
}

// Match is a ranked page hit.
type Match struct {
	// Document is the matched page.
	Document Document

	// PageScore is the accumulated pass-one relevance score.
	PageScore float64

	// MatchingAnchors are the page's anchors that matched the query,
	// in heading order. Only set for pages above the page threshold.
	MatchingAnchors []Anchor

	// Snippet is a window of the page body around the best matching term.
	Snippet Snippet
}

// Span is a half-open byte range [Start, End) within a snippet's text.
type Span struct {
	Start int
	End   int
}

// Snippet is a plain-text excerpt with highlighted ranges.
type Snippet struct {
	// Text is the raw excerpt. It is not escaped.
	Text string

	// Highlights are non-overlapping, ordered ranges of Text.
	Highlights []Span

	// Prefix and Suffix report whether Text was cut from a longer body.
	Prefix bool
	Suffix bool
}

// Render returns the snippet with every highlighted range passed through mark
// and every other range through plain.
func (s Snippet) Render(plain, mark func(string) string) string {
	var b strings.Builder
	if s.Prefix {
		b.WriteString(plain("…"))
	}
	pos := 0
	for _, h := range s.Highlights {
		if h.Start < pos || h.End > len(s.Text) || h.Start >= h.End {
			continue
		}
		b.WriteString(plain(s.Text[pos:h.Start]))
		b.WriteString(mark(s.Text[h.Start:h.End]))
		pos = h.End
	}
	b.WriteString(plain(s.Text[pos:]))
	if s.Suffix {
		b.WriteString(plain("…"))
	}
	return b.String()
}

// HTML renders the snippet for the web. Every segment is escaped before the
// <mark> tags are inserted, so inserted markup is never re-escaped.
func (s Snippet) HTML() string {
	return s.Render(html.EscapeString, func(seg string) string {
		return "<mark>" + html.EscapeString(seg) + "</mark>"
	})
}

// String renders the snippet without highlighting.
func (s Snippet) String() string {
	identity := func(seg string) string { return seg }
	return s.Render(identity, identity)
}

// QuerySession is the ephemeral state of one query.
// IDs increase monotonically per SearchService so that callers issuing
// overlapping queries can discard stale responses.
type QuerySession struct {
	ID        uint64
	Query     string
	Terms     []string
	StartedAt time.Time
}

// SearchResponse is the outcome of one session.
type SearchResponse struct {
	// Session is the session the results belong to.
	Session QuerySession

	// Strategy is how the query was executed.
	Strategy ExecutionStrategy

	// Matches are ordered by descending page score.
	Matches []Match
}

// IsStale reports whether the response belongs to a session older than latest.
func (r *SearchResponse) IsStale(latest uint64) bool {
	return r.Session.ID < latest
}

// SearchStatus is a point-in-time view of a SearchService.
type SearchStatus struct {
	// Load is the artifact loader state.
	Load LoadState

	// LoadError is the last load failure, if Load is LoadFailed.
	LoadError error

	// Documents is the number of documents in the current snapshot.
	Documents int

	// TokenMapReady reports whether the token map for the current
	// snapshot has been built.
	TokenMapReady bool

	// Terms is the number of distinct terms in the token map.
	Terms int

	// Worker is the worker handle state.
	Worker WorkerState

	// Generation increases every time a new snapshot is installed.
	Generation uint64
}
