package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents application configuration
type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
	Messaging MessagingConfig `envPrefix:"MESSAGING_"`
	Logging   LoggingConfig   `envPrefix:"LOG_"`
	Security  SecurityConfig  `envPrefix:"SECURITY_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver         string        `env:"DRIVER" envDefault:"postgres"`
	Host           string        `env:"HOST" envDefault:"localhost"`
	Port           int           `env:"PORT" envDefault:"5432"`
	User           string        `env:"USER" envDefault:"postgres"`
	Password       string        `env:"PASSWORD"`
	DBName         string        `env:"NAME" envDefault:"spaceships"`
	SSLMode        string        `env:"SSLMODE" envDefault:"disable"`
	MaxConnections int           `env:"MAX_CONNECTIONS" envDefault:"20"`
	MaxIdleTime    time.Duration `env:"MAX_IDLE_TIME" envDefault:"30m"`
	Path           string        `env:"PATH" envDefault:"spaceships.db"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Addr     string        `env:"ADDR" envDefault:"localhost:6379"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	PoolSize int           `env:"POOL_SIZE" envDefault:"10"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// CacheConfig represents read-through cache configuration
type CacheConfig struct {
	Backend    string        `env:"BACKEND" envDefault:"memory"`
	TTL        time.Duration `env:"TTL" envDefault:"10m"`
	KeyPrefix  string        `env:"KEY_PREFIX" envDefault:"spaceships:cache"`
	MaxEntries int           `env:"MAX_ENTRIES" envDefault:"10000"`
}

// MessagingConfig represents the notification queue configuration
type MessagingConfig struct {
	Transport      string        `env:"TRANSPORT" envDefault:"redis"`
	Queue          string        `env:"QUEUE" envDefault:"spaceshipQueue"`
	BufferSize     int           `env:"BUFFER_SIZE" envDefault:"256"`
	PublishRetries int           `env:"PUBLISH_RETRIES" envDefault:"0"`
	RetryBackoff   time.Duration `env:"RETRY_BACKOFF" envDefault:"200ms"`
	PollTimeout    time.Duration `env:"POLL_TIMEOUT" envDefault:"5s"`
	ConsumerName   string        `env:"CONSUMER_NAME" envDefault:"default"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// SecurityConfig represents the HTTP Basic principals
type SecurityConfig struct {
	Enabled       bool   `env:"ENABLED" envDefault:"true"`
	UserUsername  string `env:"USER_USERNAME" envDefault:"user"`
	UserPassword  string `env:"USER_PASSWORD"`
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"10"`
}

// RateLimitConfig represents the per-client API request budget
type RateLimitConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"false"`
	Requests      int           `env:"REQUESTS" envDefault:"100"`
	Window        time.Duration `env:"WINDOW" envDefault:"1m"`
	BlockDuration time.Duration `env:"BLOCK_DURATION" envDefault:"15m"`
}

// TelemetryConfig represents tracing configuration
type TelemetryConfig struct {
	Enabled     bool   `env:"ENABLED" envDefault:"false"`
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"spaceships"`
}

// Load reads the given env files, or .env when present, then the process
// environment. Variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		// a missing .env file is fine
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Parse builds a configuration from the given variables only
func Parse(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.TTL <= 0 {
			return fmt.Errorf("cache TTL must be positive for the redis backend")
		}
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}

	switch c.Messaging.Transport {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported messaging transport: %s", c.Messaging.Transport)
	}

	if c.Messaging.Queue == "" {
		return fmt.Errorf("messaging queue is required")
	}

	if c.Messaging.BufferSize <= 0 {
		return fmt.Errorf("messaging buffer size must be positive")
	}

	if c.Security.Enabled {
		if c.Security.UserPassword == "" || c.Security.AdminPassword == "" {
			return fmt.Errorf("security is enabled but user or admin password is missing")
		}
		if c.Security.UserUsername == c.Security.AdminUsername {
			return fmt.Errorf("user and admin usernames must differ")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 || c.RateLimit.BlockDuration <= 0 {
			return fmt.Errorf("rate limit requests, window and block duration must be positive")
		}
	}

	return nil
}

// IsProduction checks if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// UsesRedis reports whether any component needs the Redis client
func (c *Config) UsesRedis() bool {
	return c.Cache.Backend == "redis" || c.Messaging.Transport == "redis" || c.RateLimit.Enabled
}

// Address returns the HTTP listen address
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Path
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, fmt.Sprint(c.Database.Port)),
		Path:     "/" + c.Database.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// RedactedDatabaseURL returns the connection URL without the password, for logs
func (c *Config) RedactedDatabaseURL() string {
	dsn := c.GetDatabaseURL()
	if c.Database.Password == "" || c.Database.Driver == "sqlite" {
		return dsn
	}
	return strings.Replace(dsn, url.QueryEscape(c.Database.Password), "xxxxx", 1)
}
