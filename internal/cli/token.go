package cli

import (
	"fmt"
	"time"

	"drillbi-quiz/internal/auth"
	"drillbi-quiz/internal/config"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a bearer token accepted by the devserver.
func NewTokenCmd(configPath *string) *cobra.Command {
	var (
		user    string
		role    string
		premium bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token for the devserver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			switch role {
			case auth.RoleUser, auth.RoleEducator, auth.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			signer := auth.NewSigner(cfg.Devserver.Secret, config.TTLDuration(cfg.Devserver.TokenTTL, 24*time.Hour))
			token, err := signer.Issue(user, role, premium)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "dev", "username (token subject)")
	cmd.Flags().StringVar(&role, "role", auth.RoleUser, "ROLE_USER, ROLE_EDUCATOR or ROLE_ADMIN")
	cmd.Flags().BoolVar(&premium, "premium", false, "grant the premium entitlement")
	return cmd
}
