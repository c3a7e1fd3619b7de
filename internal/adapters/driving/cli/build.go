package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build the search index artifact",
	Long: `Renders every Markdown and HTML page under dir (default index.input_dir)
and writes the index artifact (default index.output).

Headings up to index.max_heading_level become anchors. Pages pulled in with
{{#include ...}} are merged into the including page. The artifact is
replaced atomically so a running site never reads a partial file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&options.Output, "output", "o", "", "artifact path (overrides index.output)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	options.InputDir = ""
	if len(args) == 1 {
		options.InputDir = args[0]
	}

	s, err := loadServices()
	if err != nil {
		return err
	}
	if s.Index == nil {
		return fmt.Errorf("index %w", ErrNotConfigured)
	}

	report, err := s.Index.Build(cmd.Context())
	if errors.Is(err, domain.ErrIndexDisabled) {
		cmd.Println("Index building is disabled (index.enable = false).")
		return nil
	}
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	printBuildReport(cmd, report)
	return nil
}

func printBuildReport(cmd *cobra.Command, report *domain.BuildReport) {
	cmd.Printf("Wrote %s\n", report.Output)
	cmd.Printf("  Pages:     %d (%d included)\n", report.Pages, report.Included)
	cmd.Printf("  Documents: %d\n", report.Documents)
	cmd.Printf("  Anchors:   %d", report.Anchors)
	if report.DroppedAnchors > 0 {
		cmd.Printf(" (%d below max heading level)", report.DroppedAnchors)
	}
	cmd.Println()
	cmd.Printf("  Took:      %s\n", report.Duration.Round(time.Millisecond))
}
