// Package cli implements ledgerctl, the operator command line: run catch-up
// from cron, mint tokens and invoke actions directly against the database.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mmynk/groupledger/internal/app"
	"github.com/mmynk/groupledger/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"

	// appOptions is extended by tests.
	appOptions []app.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for ledgerctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Operate a groupledger database",
		Long: `ledgerctl operates on a groupledger database without going through the server.

It reads the same configuration file and environment variables as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "ledger.yaml", "configuration file (optional)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCatchUpCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewInvokeCommand(opts))

	return cmd
}

// loadConfig reads the configuration. A missing default file is fine; a
// missing explicitly named file is not.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	optional := !cmd.Flags().Changed("config")
	cfg, err := config.Load(opts.ConfigPath, optional)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "cannot load configuration", err)
	}
	return cfg, nil
}

// openApp loads the configuration and wires the components.
func openApp(cmd *cobra.Command, opts *RootOptions) (*app.App, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	a, err := app.New(cfg, opts.appOptions...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot open ledger", err)
	}
	return a, nil
}
