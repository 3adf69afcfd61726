package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/taskflow/internal/api"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API bearer token for the selected owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.RequireJWTSecret(); err != nil {
				return err
			}
			owner, err := currentOwner()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = cfg.JWT.TTL
			}
			token, err := api.NewJWT(cfg.JWT.Secret, ttl).Sign(owner)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from jwt.ttl)")
	return cmd
}
