// Package cli provides the docsearch command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
	"github.com/custodia-labs/docsearch/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// ErrNotConfigured indicates a command ran without its service.
var ErrNotConfigured = errors.New("service not configured")

// Options are the command-line values the services are built from.
// Empty fields keep the configuration file values.
type Options struct {
	ConfigPath string
	InputDir   string
	Output     string
}

// Services holds the driving ports used by the commands.
type Services struct {
	Search   driving.SearchService
	Index    driving.IndexService
	Settings driving.SettingsService

	// Watch reloads the search index whenever the artifact changes, until
	// ctx is done. It is nil when the artifact cannot be watched.
	Watch func(ctx context.Context) error

	// ServeWorker answers worker protocol requests read from r.
	ServeWorker func(ctx context.Context, r io.Reader, w io.Writer) error

	// Close releases background resources.
	Close func() error
}

// Factory builds the services once flags have been parsed.
type Factory func(opts Options) (*Services, error)

var (
	options  Options
	verbose  bool
	factory  Factory
	services *Services
)

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Full-text search for documentation sites",
	Long: `docsearch builds a JSON search index from a documentation tree and
answers queries against it with fuzzy, typo-tolerant ranking.

Pages are ranked by title and content, then the headings inside each page
that match the query are returned as deep links.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "",
		"configuration file (default ./docsearch.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices installs ready-made services, bypassing the factory.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command. f builds the services on first use.
func Execute(ctx context.Context, f Factory) error {
	factory = f
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// loadServices returns the services, building them on first use.
func loadServices() (*Services, error) {
	if services != nil {
		return services, nil
	}
	if factory == nil {
		return nil, ErrNotConfigured
	}
	s, err := factory(options)
	if err != nil {
		return nil, fmt.Errorf("initialise: %w", err)
	}
	services = s
	return services, nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("Closing services: %v", err)
	}
}

// searchService returns the search port or ErrNotConfigured.
func searchService() (driving.SearchService, error) {
	s, err := loadServices()
	if err != nil {
		return nil, err
	}
	if s.Search == nil {
		return nil, fmt.Errorf("search %w", ErrNotConfigured)
	}
	return s.Search, nil
}

// startWatch follows artifact changes in the background when enabled.
func startWatch(ctx context.Context, s *Services, enabled bool) {
	if !enabled {
		return
	}
	if s.Watch == nil {
		logger.Warn("Artifact watching is not available for this configuration")
		return
	}
	go func() {
		if err := s.Watch(ctx); err != nil {
			logger.Warn("Artifact watch stopped: %v", err)
		}
	}()
}
