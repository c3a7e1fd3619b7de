// Package doccontent provides the page view of the TUI. It shows a
// document's text and scrolls to the selected section.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

// ErrNoSearchService indicates that no search service was provided.
var ErrNoSearchService = errors.New("search service is required")

// View is the document content view.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	searchService driving.SearchService
	ctx           context.Context

	document     *domain.Document
	anchor       string
	lines        []string
	scrollOffset int
	width        int
	height       int
	err          error
	loading      bool
}

// NewView creates a new document content view.
func NewView(s *styles.Styles, km *keymap.KeyMap, searchService driving.SearchService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:        s,
		keymap:        km,
		searchService: searchService,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Open clears the view and returns a command that loads the document.
func (v *View) Open(id int, anchor string) tea.Cmd {
	v.document = nil
	v.anchor = anchor
	v.lines = nil
	v.scrollOffset = 0
	v.err = nil
	v.loading = true

	svc, ctx := v.searchService, v.ctx
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentLoaded{Anchor: anchor, Err: ErrNoSearchService}
		}
		doc, err := svc.Document(ctx, id)
		return messages.DocumentLoaded{Document: doc, Anchor: anchor, Err: err}
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the document content view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.DocumentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.document = msg.Document
		v.anchor = msg.Anchor
		v.err = nil
		v.wrapContent()
		v.scrollToAnchor()
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		v.scrollTo(v.scrollOffset - 1)
	case keymap.Matches(k, v.keymap.Down):
		v.scrollTo(v.scrollOffset + 1)
	case keymap.Matches(k, v.keymap.PageUp):
		v.scrollTo(v.scrollOffset - v.visibleLines())
	case keymap.Matches(k, v.keymap.PageDown):
		v.scrollTo(v.scrollOffset + v.visibleLines())
	case keymap.Matches(k, v.keymap.Top):
		v.scrollTo(0)
	case keymap.Matches(k, v.keymap.Bottom):
		v.scrollTo(v.maxScrollOffset())
	case keymap.Matches(k, v.keymap.Back), k == "q":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSearch}
		}
	}

	return v, nil
}

func (v *View) scrollTo(offset int) {
	v.scrollOffset = min(max(offset, 0), v.maxScrollOffset())
}

// scrollToAnchor moves the selected section's heading to the top.
func (v *View) scrollToAnchor() {
	if v.anchor == "" || v.document == nil {
		return
	}
	var text string
	for _, a := range v.document.Anchors {
		if a.ID == v.anchor {
			text = a.Text
			break
		}
	}
	if text == "" {
		return
	}
	for i, line := range v.lines {
		if strings.TrimSpace(line) == text {
			v.scrollTo(i)
			return
		}
	}
	for i, line := range v.lines {
		if strings.Contains(line, text) {
			v.scrollTo(i)
			return
		}
	}
}

// wrapContent wraps the content to fit the view width.
func (v *View) wrapContent() {
	if v.document == nil || v.document.Content == "" {
		v.lines = nil
		return
	}

	// Calculate available width (accounting for padding)
	contentWidth := max(v.width-4, 20)

	rawLines := strings.Split(v.document.Content, "\n")
	v.lines = make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		v.lines = append(v.lines, wrapLine(line, contentWidth)...)
	}
}

// wrapLine splits line into pieces of at most width runes, breaking at
// spaces where possible.
func wrapLine(line string, width int) []string {
	runes := []rune(line)
	if len(runes) <= width {
		return []string{line}
	}
	var out []string
	for len(runes) > width {
		cut := width
		for i := width; i > width/2; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimRight(string(runes[:cut]), " "))
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " "))
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}

// visibleLines returns the number of lines that can be displayed.
func (v *View) visibleLines() int {
	// Reserve lines for title, path, separator, indicator and help
	return max(v.height-7, 1)
}

// maxScrollOffset returns the maximum scroll offset.
func (v *View) maxScrollOffset() int {
	return max(len(v.lines)-v.visibleLines(), 0)
}

// View renders the document content view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document"
	location := ""
	if v.document != nil {
		title = v.document.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", v.document.ID)
		}
		location = v.document.Path
		if v.anchor != "" {
			location += "#" + v.anchor
		}
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	b.WriteString(v.styles.Path.Render(location))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading page..."))
		b.WriteString("\n\n")
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No content)"))
		b.WriteString("\n\n")
	default:
		v.renderLines(&b)
	}

	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderLines(b *strings.Builder) {
	visible := v.visibleLines()
	end := min(v.scrollOffset+visible, len(v.lines))
	for _, line := range v.lines[v.scrollOffset:end] {
		b.WriteString(v.styles.Normal.Render(line))
		b.WriteString("\n")
	}

	// Scroll position indicator
	if len(v.lines) > visible {
		percentage := 0
		if v.maxScrollOffset() > 0 {
			percentage = v.scrollOffset * 100 / v.maxScrollOffset()
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d%%] Line %d-%d of %d",
			percentage, v.scrollOffset+1, end, len(v.lines))))
	}
	b.WriteString("\n\n")
}

// renderHelp renders the help footer.
func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.wrapContent()
	v.scrollTo(v.scrollOffset)
}

// Document returns the current document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Lines returns the wrapped content.
func (v *View) Lines() []string {
	return v.lines
}

// ScrollOffset returns the first visible line.
func (v *View) ScrollOffset() int {
	return v.scrollOffset
}

// Loading reports whether a document is being fetched.
func (v *View) Loading() bool {
	return v.loading
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
