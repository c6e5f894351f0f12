package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fixora/spaceships/internal/domain"
)

// defaultSeed is loaded when no --file is given
var defaultSeed = []domain.Spaceship{
	{Name: "Enterprise", Type: "Explorer", Source: "Star Trek"},
	{Name: "Millennium Falcon", Type: "Freighter", Source: "Star Wars"},
	{Name: "Serenity", Type: "Firefly-class transport", Source: "Firefly"},
	{Name: "Galactica", Type: "Battlestar", Source: "Battlestar Galactica"},
	{Name: "Nostromo", Type: "Commercial towing vehicle", Source: "Alien"},
}

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	File string
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample spaceships",
		Long: `Create spaceships from a JSON array of {"name","type","source"} objects,
or from a built-in sample set. Names that already exist are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "JSON file with the spaceships to create")

	return cmd
}

func loadSeed(file string) ([]domain.Spaceship, error) {
	if file == "" {
		return defaultSeed, nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var ships []domain.Spaceship
	if err := json.Unmarshal(content, &ships); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return ships, nil
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	ships, err := loadSeed(opts.File)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	app, err := NewApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Store.Migrate(cmd.Context()); err != nil {
		return err
	}

	// notifications are flushed by the producer's drain once seeding is done
	producerCtx, stopProducer := context.WithCancel(cmd.Context())
	producerDone := make(chan struct{})
	go func() {
		defer close(producerDone)
		_ = app.Producer.Run(producerCtx)
	}()

	// the memory transport only delivers inside this process, so the audit
	// consumer runs alongside the seeding
	inProcess := cfg.Messaging.Transport == "memory"
	consumerCtx, stopConsumer := context.WithCancel(cmd.Context())
	defer stopConsumer()
	consumerDone := make(chan struct{})
	if inProcess {
		go func() {
			defer close(consumerDone)
			if err := app.Consumer.Run(consumerCtx); err != nil {
				log.WithError(err).Error("Audit consumer failed during seeding")
			}
		}()
	} else {
		close(consumerDone)
	}

	finish := func() {
		stopProducer()
		<-producerDone
		if inProcess {
			waitForAudit(cmd.Context(), app, cfg.Server.ShutdownTimeout)
		}
		stopConsumer()
		<-consumerDone
	}

	out := cmd.OutOrStdout()
	var created, skipped int
	for _, ship := range ships {
		ship.ID = 0
		saved, err := app.Service.Save(cmd.Context(), &ship)
		switch {
		case err == nil:
			created++
			fmt.Fprintf(out, "Created %d\t%s\n", saved.ID, saved.Name)
		case errors.Is(err, domain.ErrConflict):
			skipped++
			fmt.Fprintf(out, "Skipped %s (already exists)\n", ship.Name)
		default:
			finish()
			return fmt.Errorf("failed to seed %q: %w", ship.Name, err)
		}
	}

	finish()

	fmt.Fprintf(out, "Seeded %d spaceships, skipped %d\n", created, skipped)
	return nil
}

// waitForAudit blocks until the consumer recorded every published
// notification or timeout elapses
func waitForAudit(ctx context.Context, app *App, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for app.Consumer.Handled() < app.Producer.Published() {
		select {
		case <-ctx.Done():
			app.Logger.WithFields(logrus.Fields{
				"published": app.Producer.Published(),
				"recorded":  app.Consumer.Handled(),
			}).Warn("Timed out waiting for the audit trail")
			return
		case <-ticker.C:
		}
	}
}
