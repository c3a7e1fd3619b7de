package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// workerCmd is spawned by search.worker = "process". It speaks JSON lines
// on stdin and stdout, so it must not print anything else to stdout.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Serve query worker requests on stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE:   runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	s, err := loadServices()
	if err != nil {
		return err
	}
	if s.ServeWorker == nil {
		return fmt.Errorf("worker %w", ErrNotConfigured)
	}
	return s.ServeWorker(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}
