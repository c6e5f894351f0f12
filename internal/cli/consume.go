package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewConsumeCommand creates the consume command.
func NewConsumeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Run only the audit consumer",
		Long: `Consume notifications from the Redis queue and append them to the
audit log until interrupted. Several consumers may run side by side when each
has its own MESSAGING_CONSUMER_NAME.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsume(cmd.Context(), rootOpts)
		},
	}
}

func runConsume(ctx context.Context, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Messaging.Transport != "redis" {
		return fmt.Errorf("consume needs MESSAGING_TRANSPORT=redis, the %s transport only delivers within one process", cfg.Messaging.Transport)
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	log.WithField("queue", cfg.Messaging.Queue).Info("Starting audit consumer")
	return app.Consumer.Run(ctx)
}
