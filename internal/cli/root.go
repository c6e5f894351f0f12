// Package cli implements the spaceships command line.
package cli

import (
	"github.com/spf13/cobra"
)

// Build information, set with -ldflags at release time
var (
	Version = "dev"
	Commit  = "none"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
	LogLevel string
}

// NewRootCommand creates the root command for the spaceships CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "spaceships",
		Short:         "Spaceship catalog service",
		Long:          "Serves the spaceship catalog API and records every change in the audit log.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "env files to load instead of .env")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override LOG_LEVEL")

	// Add subcommands
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewConsumeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}
