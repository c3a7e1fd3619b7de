// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

// Theme is the colour palette of the search UI.
type Theme struct {
	Accent lipgloss.Color // page titles, selection
	Info   lipgloss.Color // section anchors, worker strategy
	Text   lipgloss.Color
	Dim    lipgloss.Color // paths, hints, status text
	Panel  lipgloss.Color // status bar background
	Frame  lipgloss.Color // input border

	// Strategy colours. Mark marks query terms in snippets and shares the
	// degraded colour so highlights stay readable on both backgrounds.
	Good lipgloss.Color
	Mark lipgloss.Color
	Bad  lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Accent: lipgloss.Color("#7C3AED"),
		Info:   lipgloss.Color("#06B6D4"),
		Text:   lipgloss.Color("#CDD6F4"),
		Dim:    lipgloss.Color("#6C7086"),
		Panel:  lipgloss.Color("#181825"),
		Frame:  lipgloss.Color("#45475A"),
		Good:   lipgloss.Color("#A6E3A1"),
		Mark:   lipgloss.Color("#F9E2AF"),
		Bad:    lipgloss.Color("#F38BA8"),
	}
}

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title      lipgloss.Style // result and page titles
	Subtitle   lipgloss.Style
	Normal     lipgloss.Style
	Muted      lipgloss.Style
	Selected   lipgloss.Style
	Error      lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Highlight  lipgloss.Style // query terms inside snippets
	Anchor     lipgloss.Style // sections nested under a page
	Path       lipgloss.Style

	strategies map[domain.ExecutionStrategy]lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}

	return &Styles{
		theme:     theme,
		Title:     fg(theme.Accent).Bold(true),
		Subtitle:  fg(theme.Info).Bold(true),
		Normal:    fg(theme.Text),
		Muted:     fg(theme.Dim),
		Selected:  fg(theme.Text).Background(theme.Accent).Bold(true),
		Error:     fg(theme.Bad),
		StatusBar: fg(theme.Dim).Background(theme.Panel).Padding(0, 1),
		Help:      fg(theme.Dim),
		Highlight: fg(theme.Mark).Bold(true),
		Anchor:    fg(theme.Info),
		Path:      fg(theme.Dim).Italic(true),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Frame).
			Padding(0, 1),
		strategies: map[domain.ExecutionStrategy]lipgloss.Style{
			domain.StrategyInline:   fg(theme.Good),
			domain.StrategyWorker:   fg(theme.Info),
			domain.StrategyFallback: fg(theme.Mark).Bold(true),
		},
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Strategy returns the style for an execution strategy label. Fallback is
// emphasised because results are degraded; unknown strategies are muted.
func (s *Styles) Strategy(strategy domain.ExecutionStrategy) lipgloss.Style {
	if st, ok := s.strategies[strategy]; ok {
		return st
	}
	return s.Muted
}
