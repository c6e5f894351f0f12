package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	Down  bool
	Steps int
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or revert database migrations",
		Long: `Apply every pending migration, or with --down revert the most recent
ones.

Example:
  spaceships migrate
  spaceships migrate --down --steps 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Down && opts.Steps <= 0 {
				return fmt.Errorf("--steps must be positive")
			}

			cfg, err := loadConfig(opts.RootOptions)
			if err != nil {
				return err
			}

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()

			if opts.Down {
				reverted, err := store.Rollback(cmd.Context(), opts.Steps)
				for _, name := range reverted {
					fmt.Fprintf(out, "Reverted %s\n", name)
				}
				if err != nil {
					return err
				}
				if len(reverted) == 0 {
					fmt.Fprintln(out, "No applied migrations")
				}
				return nil
			}

			applied, err := store.Migrate(cmd.Context())
			for _, name := range applied {
				fmt.Fprintf(out, "Applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "No pending migrations")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Down, "down", false, "revert instead of apply")
	cmd.Flags().IntVar(&opts.Steps, "steps", 1, "number of migrations to revert with --down")

	return cmd
}
