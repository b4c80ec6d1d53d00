package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	CallerID string
	Data     string
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <action>",
		Short: "Dispatch one action against the database as a caller",
		Long: `Dispatch one action in-process, through the same access gate and
handlers the server uses, and print the response envelope.

Example:
  ledgerctl invoke getTransactions --caller alice --data '{"groupId":"g1","filter":{"date":"2024-01","type":"month"}}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.CallerID, "caller", "", "caller id (required)")
	cmd.Flags().StringVar(&opts.Data, "data", "{}", "action payload as JSON")
	_ = cmd.MarkFlagRequired("caller")

	return cmd
}

func runInvoke(cmd *cobra.Command, opts *InvokeOptions, action string) error {
	if !json.Valid([]byte(opts.Data)) {
		return NewExitError(ExitCommandError, "invalid --data JSON")
	}

	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	env := a.Dispatcher.Invoke(cmd.Context(), opts.CallerID, action, json.RawMessage(opts.Data))
	if err := writeJSON(cmd.OutOrStdout(), env); err != nil {
		return err
	}
	if !env.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", env.Code, env.Err))
	}
	return nil
}
