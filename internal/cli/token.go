package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/groupledger/internal/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	UserID string
	Email  string
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a caller id",
		Long: `Sign a bearer token with the configured auth.jwt_secret.

The token lets scripts call the LedgerService as the given user.

Example:
  ledgerctl token --user 6f1c... > token.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "caller id to embed (required)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "optional email claim")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runToken(cmd *cobra.Command, opts *TokenOptions) error {
	cfg, err := loadConfig(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.TokenTTL()).Generate(opts.UserID, opts.Email)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot sign token", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"token": token, "userId": opts.UserID})
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
