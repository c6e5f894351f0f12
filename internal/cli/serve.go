package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/fixora/spaceships/internal/adapter/http"
	"github.com/fixora/spaceships/internal/config"
	"github.com/fixora/spaceships/internal/infra/password"
	"github.com/fixora/spaceships/internal/infra/ratelimit"
	"github.com/fixora/spaceships/internal/infra/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	NoConsumer  bool
	SkipMigrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the spaceship catalog HTTP API together with the notification
producer and, unless --no-consumer is given, the audit consumer.

Pending migrations are applied before the server starts.

Example:
  spaceships serve
  spaceships serve --no-consumer --env-file prod.env`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoConsumer, "no-consumer", false, "do not run the audit consumer in this process")
	cmd.Flags().BoolVar(&opts.SkipMigrate, "skip-migrate", false, "do not apply pending migrations on start")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.WithError(err).Warn("Failed to flush traces")
		}
	}()

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	if !opts.SkipMigrate {
		applied, err := app.Store.Migrate(ctx)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			log.WithField("migrations", applied).Info("Migrations applied")
		}
	}

	auth, err := newBasicAuth(cfg)
	if err != nil {
		return err
	}
	if auth == nil {
		log.Warn("Security disabled, the API accepts unauthenticated requests")
	}

	var serverOpts []httpadapter.ServerOption
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRateLimitService(app.Redis, "spaceships:ratelimit", log)
		serverOpts = append(serverOpts, httpadapter.WithRateLimit(httpadapter.NewRateLimitMiddleware(limiter, httpadapter.RateLimitConfig{
			Requests:      cfg.RateLimit.Requests,
			Window:        cfg.RateLimit.Window,
			BlockDuration: cfg.RateLimit.BlockDuration,
		}, log)))
	}

	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:         cfg.Address(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, app.Service, auth, app.Store.Ping, log, serverOpts...)

	log.WithFields(logrus.Fields{
		"version":     Version,
		"environment": cfg.Server.Environment,
		"cache":       cfg.Cache.Backend,
		"transport":   cfg.Messaging.Transport,
		"consumer":    !opts.NoConsumer,
	}).Info("Application starting")

	g, gctx := errgroup.WithContext(ctx)

	// The pipeline outlives the HTTP server: the producer drains only after
	// the last handler returned, and the consumer stops after the producer.
	producerCtx, stopProducer := context.WithCancel(context.Background())
	defer stopProducer()
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	producerDone := make(chan struct{})
	g.Go(func() error {
		defer close(producerDone)
		return app.Producer.Run(producerCtx)
	})

	if !opts.NoConsumer {
		g.Go(func() error {
			return app.Consumer.Run(consumerCtx)
		})
	}

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		stopProducer()
		<-producerDone
		stopConsumer()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"published": app.Producer.Published(),
		"dropped":   app.Producer.Dropped(),
	}).Info("Application stopped")
	return nil
}

// newBasicAuth returns nil when security is disabled
func newBasicAuth(cfg *config.Config) (*httpadapter.BasicAuth, error) {
	if !cfg.Security.Enabled {
		return nil, nil
	}

	return httpadapter.NewBasicAuth(password.NewBcryptPasswordService(cfg.Security.BcryptCost),
		httpadapter.Credential{
			Username: cfg.Security.UserUsername,
			Password: cfg.Security.UserPassword,
			Role:     httpadapter.RoleUser,
		},
		httpadapter.Credential{
			Username: cfg.Security.AdminUsername,
			Password: cfg.Security.AdminPassword,
			Role:     httpadapter.RoleAdmin,
		},
	)
}
