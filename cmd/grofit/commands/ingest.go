package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/grofit/backend/internal/ingest"
)

// ingestCmd runs ingestion for a single date and exits.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one day's market-history snapshot",
	Long: `Fetches, deduplicates, and stores one day's snapshot.

Re-running for content that was already processed marks the run
skipped and writes nothing.

Example:
  go run ./cmd/grofit ingest
  go run ./cmd/grofit ingest --date 2025-08-30`,
	RunE: runIngest,
}

var ingestDate string

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "target date YYYY-MM-DD (default: yesterday UTC)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	date := ingestDate
	if date == "" {
		date = ingest.YesterdayUTC(time.Now())
	}

	return a.ingestion.Ingest(cmd.Context(), date)
}
