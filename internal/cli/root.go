// Package cli wires configuration, logging and the flow runner into the
// diagflow command line.
package cli

import (
	"github.com/spf13/cobra"

	"diagflow/internal/report"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json"
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "diagflow",
		Short: "End-to-end verifier for the diagnostics ordering backend",
		Long: `diagflow drives member, non-member and new-user personas through login,
catalog search, cart, slot booking, order creation and payment verification,
and cross-checks every response against what earlier steps recorded.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := report.ParseFormat(opts.Format)
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "report format (text|json)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewFakeBackendCommand(opts))
	return cmd
}
