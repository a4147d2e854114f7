package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sellerops/internal/config"
	"sellerops/pkg/auth"
)

var (
	tokenUser  string
	tokenEmail string
	tokenRole  string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token signed with JWT_SECRET",
	RunE:  issueToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user ID (required)")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email claim")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "user", "role claim")
	_ = tokenCmd.MarkFlagRequired("user")
}

func issueToken(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	cfg := config.Load()

	tokens, err := auth.NewTokenAuth(cfg.JWTSecret, cfg.AccessTokenExpiry)
	if err != nil {
		return err
	}
	token, err := tokens.IssueAccessToken(tokenUser, tokenEmail, tokenRole)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
