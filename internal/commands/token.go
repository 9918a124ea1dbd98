package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/middleware/auth"
)

func newTokenCommand(opts *globalOptions) *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user must be a positive integer")
			}
			cfg, _, err := prepare(opts, nil, log.ComponentAuth)
			if err != nil {
				return err
			}
			if len(cfg.JWTSecret) < config.MinJWTSecretLength {
				return fmt.Errorf("JWT secret must be at least %d characters (set JWT_SECRET)", config.MinJWTSecretLength)
			}

			token, err := auth.Issue(cfg.JWTSecret, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id placed in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
