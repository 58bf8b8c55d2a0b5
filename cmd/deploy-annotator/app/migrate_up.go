package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/stackbound/deploy-annotator/database"
	"github.com/stackbound/deploy-annotator/internal/config"
	"github.com/stackbound/deploy-annotator/internal/logger"
)

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply all pending database migrations to bring the schema up to date.
This command reads the database connection parameters from the config file
and provisions the deployment record table.`,
	RunE: runMigrateUp,
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return runMigration(cmd, "apply", database.MigrateUp)
}

// runMigration connects to the configured database and runs the given
// migration function, prompting first unless --yes was passed.
func runMigration(cmd *cobra.Command, action string, migrate func(context.Context, *pgx.Conn) error) error {
	ctx := context.Background()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return fmt.Errorf("failed to get yes flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbCfg := cfg.Storage.Database
	if dbCfg == nil {
		return fmt.Errorf("storage.database configuration is required")
	}

	connString, err := dbCfg.GetConnectionString()
	if err != nil {
		return fmt.Errorf("failed to get connection string: %w", err)
	}

	if !yes {
		logger.Infof("About to %s migrations on database: %s@%s:%d/%s",
			action, dbCfg.User, dbCfg.Host, dbCfg.Port, dbCfg.Database)
		fmt.Print("Continue? (yes/no): ")
		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			return fmt.Errorf("failed to read user input: %w", err)
		}
		if response != "yes" && response != "y" {
			logger.Infof("Migration cancelled by user")
			return nil
		}
	}

	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(ctx); closeErr != nil {
			logger.Errorf("Error closing database connection: %v", closeErr)
		}
	}()

	logger.Infof("Running database migrations...")
	if err := migrate(ctx, conn); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Infof("Migrations completed successfully")
	return nil
}
