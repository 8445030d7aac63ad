package cli

import (
	"fmt"

	"tasktrack/backend/internal/middleware"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the seed endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			auth := a.config.Auth

			token, err := middleware.IssueToken(auth.SeedSecret, auth.Issuer, subject, []string{middleware.ScopeSeed}, auth.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "subject claim of the token")
	return cmd
}
