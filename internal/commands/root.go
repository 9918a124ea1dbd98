// Package commands defines the ledger command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
)

type globalOptions struct {
	envFile string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Personal finance ledger with installments and fixed projections",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default ./.env when present)")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newWorkerCommand(opts),
		newMigrateCommand(opts),
		newTokenCommand(opts),
	)

	return rootCmd
}

// prepare loads the environment, validates the configuration and installs
// the default logger.
func prepare(opts *globalOptions, validate func(*config.Config) error, component string) (*config.Config, *log.Logger, error) {
	if err := cli.LoadEnvFile(opts.envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := cli.LoadConfig(validate)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.SetupLogger(cfg.LogLevel, component)
	if err != nil {
		return nil, nil, fmt.Errorf("setup logger: %w", err)
	}
	return cfg, logger, nil
}
