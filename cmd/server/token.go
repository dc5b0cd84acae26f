package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"query-gateway/internal/config"
	"query-gateway/internal/security"
)

func newTokenCmd(configPath *string) *cobra.Command {
	var userID, username string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the configured JWT secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(*configPath)
			if err != nil {
				return err
			}
			return issueToken(cmd.OutOrStdout(), cfg.Security, userID, username)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID recorded in the token")
	cmd.Flags().StringVar(&username, "username", "", "Username recorded in the token (default: the user ID)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func issueToken(w io.Writer, sec config.SecurityConfig, userID, username string) error {
	if sec.JWTSecret == "" {
		return errors.New("security.jwt_secret is not set")
	}
	if username == "" {
		username = userID
	}
	token, err := security.NewJWTManager(sec.JWTSecret, sec.JWTExpiration).GenerateToken(userID, username)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
