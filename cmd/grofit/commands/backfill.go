package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// backfillCmd ingests an inclusive date range sequentially.
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest a range of historical dates",
	Long: `Ingests every date in [from, to] in order. A failing date is
reported and does not stop the remaining dates.

Example:
  go run ./cmd/grofit backfill --from 2025-08-01 --to 2025-08-30`,
	RunE: runBackfill,
}

var (
	backfillFrom string
	backfillTo   string
)

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "start date YYYY-MM-DD (required)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "end date YYYY-MM-DD (required)")
	_ = backfillCmd.MarkFlagRequired("from")
	_ = backfillCmd.MarkFlagRequired("to")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	results, err := a.ingestion.IngestRange(cmd.Context(), backfillFrom, backfillTo)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Status != "ok" {
			failed++
			fmt.Printf("  %s  failed: %s\n", res.Date, res.Error)
			continue
		}
		fmt.Printf("  %s  ok\n", res.Date)
	}

	fmt.Printf("Backfill finished: %d dates, %d failed\n", len(results), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d dates failed", failed, len(results))
	}
	return nil
}
