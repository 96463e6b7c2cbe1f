package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "grofit",
	Short: "Market-history ingestion and flip analytics backend",
	Long: `Grofit backend CLI

Ingests daily market-history snapshots, deduplicates by content hash,
and computes windowed flip analytics over the stored history.

Usage:
  go run ./cmd/grofit [command]

Examples:
  go run ./cmd/grofit serve
  go run ./cmd/grofit ingest --date 2025-08-30
  go run ./cmd/grofit backfill --from 2025-08-01 --to 2025-08-30
  go run ./cmd/grofit analytics --date 2025-08-30
  go run ./cmd/grofit status`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
