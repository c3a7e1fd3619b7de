package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/views/doccontent"
	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// keymap holds the key bindings shared by the views.
	keymap *keymap.KeyMap

	// searchView is the search-as-you-type view.
	searchView *search.View

	// docView shows a selected page.
	docView *doccontent.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// previousView is where the help view returns to.
	previousView messages.ViewType

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	searchView := search.NewView(s, km, ports.Search).WithLimit(ports.Limit)
	searchView.SetLoading()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		searchView:  searchView,
		docView:     doccontent.NewView(s, km, ports.Search),
		currentView: messages.ViewSearch,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.docView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
// It loads the index in the background while the user starts typing.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("docsearch"),
		a.searchView.Init(),
		a.warm(),
	)
}

// warm loads the artifact and waits for the token map.
func (a *App) warm() tea.Cmd {
	svc, ctx := a.ports.Search, a.ctx
	return func() tea.Msg {
		err := svc.Warm(ctx)
		return messages.IndexWarmed{Status: svc.Status(), Err: err}
	}
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		return a.handleKeyMsg(msg)

	case messages.SearchDebounced, messages.SearchCompleted, messages.IndexWarmed:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.DocumentSelected:
		a.currentView = messages.ViewDocument
		return a, a.docView.Open(msg.DocumentID, msg.Anchor)

	case messages.DocumentLoaded:
		a.docView, cmd = a.docView.Update(msg)
		a.err = a.docView.Err()
		return a, cmd

	case messages.ViewChanged:
		a.switchTo(msg.View)
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewSearch:
			a.searchView, cmd = a.searchView.Update(msg)
		case messages.ViewDocument:
			a.docView, cmd = a.docView.Update(msg)
		case messages.ViewHelp:
			// Help does not show errors
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages (cursor blink) to the search input
	if a.currentView == messages.ViewSearch {
		a.searchView, cmd = a.searchView.Update(msg)
	}
	return a, cmd
}

// handleKeyMsg forwards keys to the active view.
func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
	case messages.ViewDocument:
		a.docView, cmd = a.docView.Update(msg)
	case messages.ViewHelp:
		// Any of esc, ? or q leaves help
		k := msg.String()
		if msg.Type == tea.KeyEsc || keymap.Matches(k, a.keymap.Help) || k == "q" {
			a.currentView = a.previousView
		}
	}
	return a, cmd
}

func (a *App) switchTo(view messages.ViewType) {
	if view == messages.ViewHelp && a.currentView != messages.ViewHelp {
		a.previousView = a.currentView
	}
	a.currentView = view
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewDocument:
		return a.docView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.searchView.View()
	}
}

// viewHelp renders the help view.
func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Search:
  (type)      Search as you type
  enter       Search now and move to the results
  ↓           Move to the results
  esc         Clear the query

Results:
  j/k, ↑/↓    Navigate pages and sections
  enter       Open the page at the selected section
  /, n        Edit the query
  ?           Help
  q           Quit

Page:
  j/k, ↑/↓    Scroll
  pgup/pgdn   Scroll a page
  g/G         Top/bottom
  esc         Back to the results

ctrl+c quits from anywhere.

` + a.styles.Help.Render("[esc] back")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Query returns the current search query.
func (a *App) Query() string {
	return a.searchView.Query()
}

// Results returns the displayed pages.
func (a *App) Results() []domain.Match {
	return a.searchView.Results()
}

// SelectedIndex returns the selected result row.
func (a *App) SelectedIndex() int {
	return a.searchView.SelectedIndex()
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and its views.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.searchView.SetDimensions(width, height)
	a.docView.SetDimensions(width, height)
}
