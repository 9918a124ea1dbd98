package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ledger/internal/log"
	"ledger/internal/storage"
)

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the SQLite schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(storage.MigrateUp), string(storage.MigrateDown)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(opts, nil, log.ComponentStorage)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.SQLiteDBPath
			}
			if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
				return fmt.Errorf("create database directory: %w", err)
			}

			direction := storage.MigrationDirection(args[0])
			version, err := storage.Migrate(dbPath, direction)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", direction, err)
			}
			logger.Info("Migrations applied", "direction", string(direction), "version", version, "path", dbPath)
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")

	return cmd
}
