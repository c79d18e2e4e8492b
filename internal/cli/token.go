package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"alfredoptarigan/talent-matcher/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token signed with the configured secret",
	RunE: func(cmd *cobra.Command, _ []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, _, err := setup()
		if err != nil {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt-secret is not set")
		}

		token, err := auth.IssueToken([]byte(cfg.Auth.JWTSecret), subject, role, ttl)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringP("subject", "s", "operator", "token subject")
	tokenCmd.Flags().StringP("role", "r", "admin", "role claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
