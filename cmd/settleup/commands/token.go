package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/auth"
)

func tokenCmd(a *app) *cobra.Command {
	var memberID, name string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a member token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}
			token, err := auth.NewJWTManager(a.cfg.JWTSecret, a.cfg.TokenDuration).Issue(memberID, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&memberID, "member", "m", "", "member ID (token subject)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.MarkFlagRequired("member")
	return cmd
}
