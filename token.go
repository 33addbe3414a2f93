package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"social-service/config"
	"social-service/util"
)

// newTokenCmd izdaje token za lokalni test.
func newTokenCmd(configPath *string) *cobra.Command {
	var (
		id, username, role string
		ttl                time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			token, err := util.NewTokenManager(cfg.Auth.Secret).GenerateToken(id, username, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id to put in the token")
	cmd.Flags().StringVar(&username, "username", "", "username claim")
	cmd.Flags().StringVar(&role, "role", "user", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
