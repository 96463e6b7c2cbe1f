package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd applies the idempotent database schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Applies all schema statements. Safe to run repeatedly; existing
tables and indexes are left untouched.

Example:
  go run ./cmd/grofit migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.db.InitSchema(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("Schema is up to date")
	return nil
}
