package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/sheets/google"
	"ledger/internal/storage"
	"ledger/internal/worker"
)

func newWorkerCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Mirror transaction events into Google Sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := prepare(opts, (*config.Config).ValidateWorker, log.ComponentWorker)
			if err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg, logger)
		},
	}
}

func runWorker(parent context.Context, cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.GracefulShutdown(parent, logger)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open sqlite repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	mirror, err := google.New(ctx, google.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("create sheets mirror: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(repo, mirror)
	logger.Info("Starting mirror worker",
		"queue", cfg.AMQPQueue,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	if err := client.Consume(ctx, w.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume events: %w", err)
	}
	logger.Info("Worker stopped")
	return nil
}
