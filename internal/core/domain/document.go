package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// MinHeadingLevel and MaxHeadingLevel bound Anchor.Level.
const (
	MinHeadingLevel = 1
	MaxHeadingLevel = 6
)

// Document is one indexed page of the artifact.
// Documents are created once by the index builder and are immutable afterwards.
type Document struct {
	// ID is the document's position in the artifact array.
	ID int `json:"id"`

	// Title is the plain-text page title.
	Title string `json:"title"`

	// Content is the plain-text body, stripped of markup.
	// Bodies of included pages are merged into their parent.
	Content string `json:"content"`

	// Path is the site-relative URL of the page.
	Path string `json:"path"`

	// Anchors are the page headings in document order.
	Anchors []Anchor `json:"anchors"`

	// Malformed is set by decoders when the persisted entry failed shape
	// validation. Such documents keep their slot so ids stay dense,
	// but they are never indexed or scored.
	Malformed bool `json:"-"`
}

// Anchor is one heading within a Document, addressable as Path#ID.
type Anchor struct {
	// ID is the fragment identifier, unique within its document.
	ID string `json:"id"`

	// Text is the plain-text heading.
	Text string `json:"text"`

	// Level is the heading level (1..6).
	Level int `json:"level,omitempty"`
}

// Link returns the URL of an anchor within the document.
func (d *Document) Link(anchor Anchor) string {
	return d.Path + "#" + url.PathEscape(anchor.ID)
}

// Validate checks the document invariants that the artifact relies on.
// position is the index the document occupies in the artifact array.
func (d *Document) Validate(position int) error {
	if d.ID != position {
		return fmt.Errorf("%w: document at %d has id %d", ErrInvalidDocument, position, d.ID)
	}
	seen := make(map[string]struct{}, len(d.Anchors))
	for _, a := range d.Anchors {
		if !ValidFragment(a.ID) {
			return fmt.Errorf("%w: anchor %q in %q is not a URL fragment", ErrInvalidDocument, a.ID, d.Path)
		}
		if a.Level != 0 && (a.Level < MinHeadingLevel || a.Level > MaxHeadingLevel) {
			return fmt.Errorf("%w: anchor %q in %q has level %d", ErrInvalidDocument, a.ID, d.Path, a.Level)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate anchor %q in %q", ErrInvalidDocument, a.ID, d.Path)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// ValidFragment reports whether id can be used verbatim as a URL fragment.
func ValidFragment(id string) bool {
	if id == "" {
		return false
	}
	return !strings.ContainsAny(id, " \t\r\n#\"<>`")
}

// Heading is a heading emitted by a renderer.
type Heading struct {
	// Text is the plain-text heading.
	Text string

	// Level is the heading level (1..6).
	Level int

	// AnchorID is the generated or explicit fragment identifier.
	AnchorID string
}

// Page is a rendered page handed to the index builder.
type Page struct {
	// Source is the input file the page was rendered from, relative to the input root.
	Source string

	// Path is the site-relative URL of the rendered page.
	Path string

	// Title is the plain-text page title.
	Title string

	// Content is the plain-text body.
	Content string

	// Headings are the page headings in document order.
	Headings []Heading

	// Includes lists the Sources of pages included into this one.
	Includes []string
}
