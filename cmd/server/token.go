package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/confer/internal/auth"
	"github.com/dkeye/confer/internal/domain"
)

var tokenTTL time.Duration

// tokenCmd mints a user credential for local testing.
var tokenCmd = &cobra.Command{
	Use:   "token <uid>",
	Short: "Print a user credential signed with auth.user_secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		tok, err := auth.NewJWT(cfg.Auth.UserSecret, cfg.Auth.Issuer).Issue(domain.UserID(args[0]), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "credential lifetime")
}
