package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grofit/backend/internal/contracts"
)

// statusCmd prints the most recent runs per source.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent ingestion and analytics runs",
	Long: `Prints the latest run records for the ingestion and analytics
pipelines with their status and content hashes.

Example:
  go run ./cmd/grofit status
  go run ./cmd/grofit status --limit 5`,
	RunE: runStatus,
}

var statusLimit int

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "runs to show per source")
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sources := []string{
		contracts.SourcePriceHistoryDaily,
		contracts.SourceFlipAnalyticsDaily,
	}

	for _, source := range sources {
		runs, err := a.runs.ListRecent(cmd.Context(), source, statusLimit)
		if err != nil {
			return fmt.Errorf("list runs for %s: %w", source, err)
		}

		fmt.Printf("\n%s (%d runs)\n", source, len(runs))
		for _, run := range runs {
			hash := "-"
			if run.SHA256 != nil {
				hash = *run.SHA256
			}

			completed := "-"
			if run.CompletedAt != nil {
				completed = run.CompletedAt.Format("2006-01-02 15:04:05")
			}

			fmt.Printf("  #%-6d %-10s  %-10s  started %s  completed %s  sha256 %s\n",
				run.ID, run.Identifier, run.Status,
				run.StartedAt.Format("2006-01-02 15:04:05"), completed, hash)
		}
	}

	fmt.Println()
	return nil
}
