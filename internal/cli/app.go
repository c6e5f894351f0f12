package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fixora/spaceships/internal/adapter/messaging"
	"github.com/fixora/spaceships/internal/adapter/persistence"
	"github.com/fixora/spaceships/internal/cache"
	"github.com/fixora/spaceships/internal/config"
	"github.com/fixora/spaceships/internal/infra/logger"
	"github.com/fixora/spaceships/internal/notification"
	"github.com/fixora/spaceships/internal/ports"
	"github.com/fixora/spaceships/internal/usecase"
)

// App holds the wired components shared by the commands
type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Store     *persistence.Store
	Redis     *redis.Client
	Cache     *cache.Cache
	Transport ports.MessageTransport
	Producer  *notification.Producer
	Consumer  *notification.AuditConsumer
	Service   *usecase.SpaceshipUseCase
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	return logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: cfg.Telemetry.ServiceName,
		Output:      os.Stdout,
	})
}

func openStore(ctx context.Context, cfg *config.Config) (*persistence.Store, error) {
	dialect, err := persistence.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	dsn := cfg.GetDatabaseURL()
	if dialect == persistence.DialectSQLite {
		dsn = persistence.SQLiteDSN(cfg.Database.Path)
	}

	return persistence.Open(ctx, persistence.Options{
		Dialect:      dialect,
		DSN:          dsn,
		MaxOpenConns: cfg.Database.MaxConnections,
		MaxIdleTime:  cfg.Database.MaxIdleTime,
	})
}

// NewApp connects the store and Redis and wires cache, notification
// pipeline and use case. Close releases everything it opened.
func NewApp(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: log}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	log.WithFields(logrus.Fields{
		"driver":   cfg.Database.Driver,
		"database": cfg.RedactedDatabaseURL(),
	}).Info("Database connection established")

	if cfg.UsesRedis() {
		app.Redis = redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.Timeout,
		})
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.WithField("addr", cfg.Redis.Addr).Info("Redis connection established")
	}

	switch cfg.Cache.Backend {
	case "redis":
		app.Cache = cache.New(cache.NewRedisBackend(app.Redis, cfg.Cache.KeyPrefix, cfg.Cache.TTL), log)
	case "memory":
		app.Cache = cache.New(cache.NewMemoryBackend(cfg.Cache.TTL, cfg.Cache.MaxEntries), log)
	default:
		app.Cache = cache.NewDisabled(log)
	}

	switch cfg.Messaging.Transport {
	case "redis":
		app.Transport = messaging.NewRedisTransport(app.Redis, messaging.RedisConfig{
			ConsumerName: cfg.Messaging.ConsumerName,
			PollTimeout:  cfg.Messaging.PollTimeout,
			RetryDelay:   cfg.Messaging.RetryBackoff,
		}, log)
	default:
		app.Transport = messaging.NewMemoryTransport(cfg.Messaging.BufferSize, cfg.Messaging.RetryBackoff)
	}

	app.Producer = notification.NewProducer(app.Transport, notification.ProducerConfig{
		Queue:          cfg.Messaging.Queue,
		BufferSize:     cfg.Messaging.BufferSize,
		PublishRetries: cfg.Messaging.PublishRetries,
		RetryBackoff:   cfg.Messaging.RetryBackoff,
		DrainTimeout:   cfg.Server.ShutdownTimeout,
	}, log)
	app.Consumer = notification.NewAuditConsumer(app.Transport, store.AuditLog(), cfg.Messaging.Queue, log)
	app.Service = usecase.NewSpaceshipUseCase(store.Spaceships(), app.Cache, app.Producer, log)

	return app, nil
}

// Close releases the transport, Redis client and store
func (a *App) Close() {
	if a.Transport != nil {
		if err := a.Transport.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close message transport")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close redis client")
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close database")
		}
	}
}
