// Package search provides the search-as-you-type view for the TUI.
package search

import (
	"context"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// DefaultDebounce is how long typing must pause before a query runs.
const DefaultDebounce = 150 * time.Millisecond

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.SearchInput
	list      *list.ResultList
	statusbar *status.Bar

	searchService driving.SearchService
	ctx           context.Context
	limit         int
	debounce      time.Duration

	// seq counts edits; a debounce tick only fires a query if no edit followed it.
	seq uint64
	// shown is the session id of the displayed results.
	shown uint64

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = results mode (navigating)
}

// NewView creates a new search view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	searchService driving.SearchService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:        s,
		keymap:        km,
		input:         input.NewSearchInput(s),
		list:          list.NewResultList(s),
		statusbar:     status.NewBar(s, km),
		searchService: searchService,
		ctx:           context.Background(),
		debounce:      DefaultDebounce,
		width:         80,
		height:        24,
		focusInput:    true, // Start in input mode
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithDebounce sets the typing pause before a query runs.
func (v *View) WithDebounce(d time.Duration) *View {
	v.debounce = d
	return v
}

// WithLimit sets the maximum number of pages per query (0 uses the service default).
func (v *View) WithLimit(limit int) *View {
	v.limit = limit
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchDebounced:
		if msg.Seq != v.seq {
			return v, nil
		}
		v.statusbar.SetState(status.StateSearching)
		return v, v.performSearch(msg.Query)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.IndexWarmed:
		v.handleIndexWarmed(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	// Forward the rest (cursor blink) to the input
	var cmd tea.Cmd
	v.input, cmd, _ = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.focusInput {
		return v.handleInputKey(msg)
	}
	return v.handleResultsKey(msg)
}

// handleInputKey handles typing. Every edit schedules a debounced query.
func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyEsc:
		v.seq++
		v.input.SetValue("")
		v.clearResults()
		return v, nil

	case tea.KeyEnter:
		query := v.input.Query()
		if query == "" {
			return v, nil
		}
		v.seq++ // supersede any pending debounce
		v.focusResults()
		v.statusbar.SetState(status.StateSearching)
		return v, v.performSearch(query)

	case tea.KeyDown:
		if !v.list.IsEmpty() {
			v.focusResults()
		}
		return v, nil
	}

	var cmd tea.Cmd
	var changed bool
	v.input, cmd, changed = v.input.Update(msg)
	if !changed {
		return v, cmd
	}

	v.seq++
	query := v.input.Query()
	if query == "" {
		v.clearResults()
		return v, cmd
	}
	return v, tea.Batch(cmd, v.scheduleSearch(v.seq, query))
}

// handleResultsKey handles navigation in the results list.
func (v *View) handleResultsKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc, keymap.Matches(msg.String(), v.keymap.NewSearch):
		return v, v.focusInputCmd()

	case msg.Type == tea.KeyEnter:
		match, anchor := v.list.SelectedResult()
		if match == nil {
			return v, nil
		}
		id := match.Document.ID
		return v, func() tea.Msg {
			return messages.DocumentSelected{DocumentID: id, Anchor: anchor}
		}

	case keymap.Matches(msg.String(), v.keymap.Up):
		if v.list.Selected() == 0 {
			return v, v.focusInputCmd()
		}
		v.list.MoveUp()
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.Down):
		v.list.MoveDown()
		return v, nil

	case keymap.Matches(msg.String(), v.keymap.Help):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewHelp}
		}

	case keymap.Matches(msg.String(), v.keymap.Quit):
		return v, func() tea.Msg { return messages.Quit{} }
	}

	return v, nil
}

// scheduleSearch fires a SearchDebounced for seq after the debounce delay.
func (v *View) scheduleSearch(seq uint64, query string) tea.Cmd {
	return tea.Tick(v.debounce, func(time.Time) tea.Msg {
		return messages.SearchDebounced{Seq: seq, Query: query}
	})
}

// performSearch executes a search and returns results.
func (v *View) performSearch(query string) tea.Cmd {
	svc, ctx, limit := v.searchService, v.ctx, v.limit
	return func() tea.Msg {
		if svc == nil {
			return messages.ErrorOccurred{Err: ErrNoSearchService}
		}

		resp, err := svc.Search(ctx, query, domain.SearchOptions{Limit: limit})
		return messages.SearchCompleted{Response: resp, Err: err}
	}
}

// handleSearchCompleted shows a session's results unless a newer session
// has started or already been shown.
func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	resp := msg.Response
	if resp == nil {
		return
	}
	if v.isStale(resp) {
		logger.Debug("tui: discarding stale session %d (%q)", resp.Session.ID, resp.Session.Query)
		return
	}

	v.shown = resp.Session.ID
	v.err = nil
	v.list.SetResults(resp.Matches)
	v.statusbar.SetMessage("")
	v.statusbar.SetResults(len(resp.Matches), resp.Strategy)
}

func (v *View) isStale(resp *domain.SearchResponse) bool {
	if resp.Session.ID < v.shown {
		return true
	}
	if v.searchService != nil && resp.IsStale(v.searchService.LatestSession()) {
		return true
	}
	// The query was cleared while this session was running
	return v.input.Query() == ""
}

// handleIndexWarmed reports the loaded index in the status bar.
func (v *View) handleIndexWarmed(msg messages.IndexWarmed) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}
	if v.statusbar.State() == status.StateLoading {
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(pagesIndexed(msg.Status.Documents))
	}
}

func pagesIndexed(n int) string {
	if n == 1 {
		return "1 page indexed"
	}
	return strconv.Itoa(n) + " pages indexed"
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

func (v *View) clearResults() {
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
}

func (v *View) focusResults() {
	v.focusInput = false
	v.input.Blur()
}

func (v *View) focusInputCmd() tea.Cmd {
	v.focusInput = true
	return v.input.Focus()
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("docsearch"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Allocate space to components
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-9) // Reserve space for header, input, status
	v.statusbar.SetWidth(width)
}

// SetLoading marks the index as loading in the status bar.
func (v *View) SetLoading() {
	v.statusbar.SetState(status.StateLoading)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the search query.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the displayed pages.
func (v *View) Results() []domain.Match {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected row.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// ShownSession returns the session id of the displayed results.
func (v *View) ShownSession() uint64 {
	return v.shown
}

// Status returns the status bar state.
func (v *View) Status() status.State {
	return v.statusbar.State()
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.seq++
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.clearResults()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}
