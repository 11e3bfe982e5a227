package admin

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/database"
)

const defaultMigrationsPath = "migrations"

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().String("migrations", defaultMigrationsPath, "Directory holding the SQL migrations")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, _ := cmd.Flags().GetString("migrations")
			return database.MigrateUp(cfg.DatabaseURL, path)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, _ := cmd.Flags().GetString("migrations")
			steps, _ := cmd.Flags().GetInt("steps")
			return database.MigrateDown(cfg.DatabaseURL, path, steps)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back (0 rolls back all)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			path, _ := cmd.Flags().GetString("migrations")
			version, dirty, err := database.MigrationVersion(cfg.DatabaseURL, path)
			if errors.Is(err, database.ErrNoMigrations) {
				fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(upCmd, downCmd, versionCmd)
	return cmd
}
