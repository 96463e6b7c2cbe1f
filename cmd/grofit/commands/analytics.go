package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/grofit/backend/internal/ingest"
)

// analyticsCmd runs flip analytics for a single date and exits.
var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Run flip analytics for one date",
	Long: `Recomputes flip recommendations, market trends, and item
performance for a date from the stored history. Manual runs always
recompute; the content-hash skip only applies to event-triggered runs.

Example:
  go run ./cmd/grofit analytics
  go run ./cmd/grofit analytics --date 2025-08-30`,
	RunE: runAnalytics,
}

var analyticsDate string

func init() {
	rootCmd.AddCommand(analyticsCmd)

	analyticsCmd.Flags().StringVar(&analyticsDate, "date", "", "target date YYYY-MM-DD (default: yesterday UTC)")
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	date := analyticsDate
	if date == "" {
		date = ingest.YesterdayUTC(time.Now())
	}

	return a.analytics.Run(cmd.Context(), date, "")
}
