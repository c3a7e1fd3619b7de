// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Row is one selectable line: a page, or one of its matching sections.
type Row struct {
	// Match indexes the page in the result set.
	Match int

	// Anchor indexes the section within the page, or -1 for the page itself.
	Anchor int
}

// IsPage reports whether the row is a page rather than a section.
func (r Row) IsPage() bool {
	return r.Anchor < 0
}

// ResultList displays ranked pages with their matching sections nested
// underneath in a navigable list.
type ResultList struct {
	matches  []domain.Match
	rows     []Row
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.matches) == 0 {
		return r.styles.Muted.Render("No results")
	}

	header := r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.matches)))

	// Render every row, then show the window of lines around the selection.
	var lines []string
	selStart, selEnd := 0, 0
	for i, row := range r.rows {
		block := strings.Split(r.renderRow(i, row), "\n")
		if i == r.selected {
			selStart, selEnd = len(lines), len(lines)+len(block)
		}
		lines = append(lines, block...)
	}

	visible := max(r.height-2, 1)
	start := 0
	if selEnd > visible {
		start = selEnd - visible
	}
	start = min(start, selStart)
	end := min(start+visible, len(lines))

	return header + "\n\n" + strings.Join(lines[start:end], "\n")
}

// renderRow formats one page or section row.
func (r *ResultList) renderRow(index int, row Row) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}
	m := &r.matches[row.Match]

	if !row.IsPage() {
		a := m.MatchingAnchors[row.Anchor]
		text := truncate(a.Text, max(r.width-12, 10))
		line := indicator + "    # " + text
		if index == r.selected {
			line = r.styles.Selected.Render(line)
		} else {
			line = r.styles.Anchor.Render(line)
		}
		return line + "  " + r.styles.Path.Render(m.Document.Path+"#"+a.ID)
	}

	// Title with score
	title := m.Document.Title
	if title == "" {
		title = "(Untitled)"
	}
	maxTitleLen := max(r.width-20, 10)
	title = truncate(title, maxTitleLen)
	score := fmt.Sprintf("%.2f", m.PageScore)

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, score))
	} else {
		titleLine = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
			r.styles.Muted.Render(score)
	}

	lines := []string{titleLine, r.styles.Path.Render("    " + m.Document.Path)}
	if m.Snippet.Text != "" {
		snippet := m.Snippet.Render(
			func(s string) string { return r.styles.Muted.Render(s) },
			func(s string) string { return r.styles.Highlight.Render(s) },
		)
		lines = append(lines, lipgloss.NewStyle().PaddingLeft(4).Width(max(r.width, 24)).Render(snippet))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

// SetResults replaces the list contents and selects the first row.
func (r *ResultList) SetResults(matches []domain.Match) {
	r.matches = matches
	r.rows = make([]Row, 0, len(matches))
	for i := range matches {
		r.rows = append(r.rows, Row{Match: i, Anchor: -1})
		for j := range matches[i].MatchingAnchors {
			r.rows = append(r.rows, Row{Match: i, Anchor: j})
		}
	}
	r.selected = 0
}

// Results returns the current pages.
func (r *ResultList) Results() []domain.Match {
	return r.matches
}

// Rows returns every selectable row in display order.
func (r *ResultList) Rows() []Row {
	return r.rows
}

// Selected returns the index of the selected row.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected row.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.rows) {
		r.selected = index
	}
}

// SelectedResult returns the page of the selected row and the selected
// section's id, which is empty for a page row. It returns nil when the list
// is empty.
func (r *ResultList) SelectedResult() (*domain.Match, string) {
	if len(r.rows) == 0 || r.selected < 0 || r.selected >= len(r.rows) {
		return nil, ""
	}
	row := r.rows[r.selected]
	m := &r.matches[row.Match]
	if row.IsPage() {
		return m, ""
	}
	return m, m.MatchingAnchors[row.Anchor].ID
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.rows)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *ResultList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *ResultList) Height() int {
	return r.height
}

// Count returns the number of pages.
func (r *ResultList) Count() int {
	return len(r.matches)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.matches) == 0
}
