package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joacominatel/peerpods/internal/infrastructure/config"
	"github.com/joacominatel/peerpods/internal/infrastructure/database"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

const migrateTimeout = 2 * time.Minute

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			return m.Run(ctx)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert the newest applied migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			reverted, err := m.Down(ctx, steps)
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %d migration(s)\n", reverted)
			return err
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List migrations and whether they are applied",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrator(cmd.Context(), func(ctx context.Context, m *database.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tDESCRIPTION\tAPPLIED")
			for _, s := range statuses {
				fmt.Fprintf(w, "%s\t%s\t%t\n", s.Version, s.Description, s.Applied)
			}
			return w.Flush()
		})
	},
}

func init() {
	migrateDownCmd.Flags().Int("steps", 1, "number of migrations to revert")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

// withMigrator opens the database from the DB_* settings alone, so schema
// commands run without the auth secret or any optional backend.
func withMigrator(parent context.Context, fn func(ctx context.Context, m *database.Migrator) error) error {
	dbCfg, logCfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	logger := logging.NewWithLevel(logging.ParseLevel(logCfg.Level))

	conn, err := database.New(dbCfg, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, migrateTimeout)
	defer cancel()

	return fn(ctx, database.NewMigrator(conn, logger))
}
