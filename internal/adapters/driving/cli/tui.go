package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/adapters/driving/tui"
)

var (
	tuiLimit int
	tuiWatch bool
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive search-as-you-type interface.

Results refresh while you type. Matching sections are listed under each
page and open the page scrolled to that heading.

Controls:
  ↑/k, ↓/j - Navigate pages and sections
  Enter    - Search now / Open
  Esc      - Back / Clear
  ?        - Toggle help
  q        - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiLimit, "limit", "n", 0, "maximum number of pages (0 uses search.limit)")
	tuiCmd.Flags().BoolVarP(&tuiWatch, "watch", "w", false, "reload the index when the artifact changes")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	s, err := loadServices()
	if err != nil {
		return err
	}

	ports := tui.NewPorts(s.Search)
	ports.Limit = tuiLimit

	// Create the TUI app
	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	ctx := cmd.Context()
	startWatch(ctx, s, watchEnabled(s, tuiWatch))
	app.WithContext(ctx)

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// watchEnabled reports whether the artifact should be followed, from the
// flag or artifact.watch.
func watchEnabled(s *Services, flag bool) bool {
	if flag {
		return true
	}
	if s.Settings == nil {
		return false
	}
	settings, err := s.Settings.Get()
	if err != nil {
		return false
	}
	return settings.Artifact.Watch
}
