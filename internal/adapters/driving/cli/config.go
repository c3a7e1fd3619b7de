package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
	"github.com/custodia-labs/docsearch/internal/core/ports/driving"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change docsearch settings.

Settings live in a TOML file (default ./docsearch.toml) with [index],
[search], [search.weights] and [artifact] sections. Keys are addressed with
dots, for example search.worker_timeout.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Validate and store a configuration value.

Lists are comma separated. Durations use Go syntax (5s, 250ms).

Examples:
  docsearch config set search.worker process
  docsearch config set artifact.locations assets/search-index.json,/search-index.json
  docsearch config set search.weights.page_threshold 4`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func settingsService() (driving.SettingsService, error) {
	s, err := loadServices()
	if err != nil {
		return nil, err
	}
	if s.Settings == nil {
		return nil, fmt.Errorf("settings %w", ErrNotConfigured)
	}
	return s.Settings, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	settings, err := svc.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Current Settings (%s)\n", svc.Path())
	cmd.Println("================")
	cmd.Println()
	printSettings(cmd, settings)
	return nil
}

func printSettings(cmd *cobra.Command, settings *domain.Settings) {
	idx := settings.Index
	cmd.Println("[index]")
	cmd.Printf("  enable: %t\n", idx.Enable)
	cmd.Printf("  max_heading_level: %d\n", idx.MaxHeadingLevel)
	cmd.Printf("  input_dir: %s\n", idx.InputDir)
	cmd.Printf("  output: %s\n", idx.Output)
	cmd.Printf("  concurrency: %s\n", orAuto(idx.Concurrency))
	cmd.Println()

	s := settings.Search
	cmd.Println("[search]")
	cmd.Printf("  limit: %d\n", s.Limit)
	cmd.Printf("  worker: %s\n", s.Worker)
	cmd.Printf("  worker_threshold: %d\n", s.WorkerThreshold)
	cmd.Printf("  worker_timeout: %s\n", s.WorkerTimeout)
	cmd.Printf("  token_chunk_size: %d\n", s.TokenChunkSize)
	cmd.Printf("  token_map_pruning: %t\n", s.TokenMapPruning)
	cmd.Printf("  snippet_width: %d\n", s.SnippetWidth)
	if s.Weights == domain.DefaultScoringWeights() {
		cmd.Println("  weights: defaults")
	} else {
		cmd.Println("  weights: customised")
	}
	cmd.Println()

	a := settings.Artifact
	cmd.Println("[artifact]")
	cmd.Printf("  locations: %s\n", strings.Join(a.Locations, ", "))
	cmd.Printf("  root: %s\n", a.Root)
	if a.BaseURL != "" {
		cmd.Printf("  base_url: %s\n", a.BaseURL)
	}
	cmd.Printf("  eager_limit: %d\n", a.EagerLimit)
	cmd.Printf("  yield_every: %d\n", a.YieldEvery)
	cmd.Printf("  watch: %t\n", a.Watch)
}

func orAuto(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprint(n)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := svc.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s in %s\n", key, value, svc.Path())
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	svc, err := settingsService()
	if err != nil {
		return err
	}
	cmd.Println(svc.Path())
	return nil
}
