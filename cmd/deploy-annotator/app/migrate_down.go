package app

import (
	"github.com/spf13/cobra"

	"github.com/stackbound/deploy-annotator/database"
)

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back database migrations",
	Long: `Roll back the database migrations, dropping the deployment record table.
This is destructive: all recorded deployment correlations are lost.`,
	RunE: runMigrateDown,
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	return runMigration(cmd, "roll back", database.MigrateDown)
}
