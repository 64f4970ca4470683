package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Store drivers selectable with STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config is loaded once at startup and treated as read-only afterwards.
type Config struct {
	Port     string `env:"PORT,      default=8001"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"JWT_TTL,     default=3600s"`
	BcryptCost int           `env:"BCRYPT_COST, default=10"`

	StoreDriver string `env:"STORE_DRIVER, default=postgres"`

	Postgres PostgresConfig
	Mongo    MongoConfig
}

type PostgresConfig struct {
	Host         string `env:"POSTGRES_HOST,           default=localhost"`
	Port         int    `env:"POSTGRES_PORT,           default=5432"`
	Database     string `env:"POSTGRES_DB,             default=auth"`
	User         string `env:"POSTGRES_USER,           default=postgres"`
	Password     string `env:"POSTGRES_PASSWORD"`
	SSLMode      string `env:"POSTGRES_SSLMODE,        default=require"`
	MaxOpenConns int    `env:"POSTGRES_MAX_OPEN_CONNS, default=10"`
	AutoMigrate  bool   `env:"POSTGRES_AUTO_MIGRATE,   default=false"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth"`
}

// IsDevelopment reports whether human-friendly output should be used.
func (c *Config) IsDevelopment() bool { return c.Env == "development" }

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.TokenTTL)
	}
	switch c.StoreDriver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, nil)
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
