// Command authsvc serves the credential endpoints: register, login and token
// verification.
//
//	@title						Auth Service API
//	@version					1.0
//	@description				Issues and validates bearer tokens for registered users.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gorm.io/gorm"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/infrastructure/auth"
	"github.com/99minutos/auth-service/internal/infrastructure/db/memory"
	"github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/auth-service/internal/infrastructure/db/postgres"
	httpserver "github.com/99minutos/auth-service/internal/infrastructure/http"
	"github.com/99minutos/auth-service/internal/pkg/config"
	"github.com/99minutos/auth-service/pkg/logger"
)

const serviceName = "auth-service"

// userStore is what the service and the readiness probe need from a backend.
type userStore interface {
	ports.CredentialStore
	ports.StorePinger
}

func main() {
	fx.New(
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
		injectInfra(),
		injectCredentials(),
		injectDelivery(),
		fx.Invoke(func(*httpserver.Server) {}),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		loadConfig,
		newLogger,
		newUserStore,
	)
}

func injectCredentials() fx.Option {
	return fx.Provide(
		newPasswordHasher,
		newTokenCodec,
		newAuthService,
	)
}

func injectDelivery() fx.Option {
	return fx.Provide(
		newRouter,
		newServer,
	)
}

func loadConfig() (*config.Config, error) {
	return config.Load(context.Background())
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
}

// newUserStore opens the backend selected by STORE_DRIVER and ties its
// shutdown to the fx lifecycle.
func newUserStore(lc fx.Lifecycle, cfg *config.Config, log zerolog.Logger) (userStore, error) {
	ctx := context.Background()

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, postgres.Config{
			Host:         cfg.Postgres.Host,
			Port:         cfg.Postgres.Port,
			Database:     cfg.Postgres.Database,
			User:         cfg.Postgres.User,
			Password:     cfg.Postgres.Password,
			SSLMode:      cfg.Postgres.SSLMode,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
		}, log)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = postgres.Close(db)
				return nil, err
			}
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return closePostgres(db, log) }})
		log.Info().Str("driver", cfg.StoreDriver).Str("host", cfg.Postgres.Host).Msg("credential store ready")
		return postgres.NewUserStore(db), nil

	case config.DriverMongo:
		store, client, err := mongo.Open(ctx, mongo.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: client.Disconnect})
		log.Info().Str("driver", cfg.StoreDriver).Str("database", cfg.Mongo.Database).Msg("credential store ready")
		return store, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory credential store; users are lost on restart")
		return memory.NewUserStore(), nil
	}

	return nil, errors.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func closePostgres(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("closing postgres pool")
	return postgres.Close(db)
}

func newPasswordHasher(cfg *config.Config) ports.PasswordHasher {
	return auth.NewBcryptHasher(cfg.BcryptCost)
}

func newTokenCodec(cfg *config.Config) (ports.TokenCodec, error) {
	return auth.NewJWTCodec(cfg.JWTSecret)
}

func newAuthService(
	cfg *config.Config,
	store userStore,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	log zerolog.Logger,
) (ports.AuthService, error) {
	return service.NewAuthService(store, hasher, tokens, cfg.TokenTTL, log)
}

func newRouter(svc ports.AuthService, tokens ports.TokenCodec, store userStore, log zerolog.Logger) *echo.Echo {
	return api.NewRouter(api.Deps{
		AuthService: svc,
		Tokens:      tokens,
		Store:       store,
		Log:         log,
	})
}

func newServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, log zerolog.Logger) *httpserver.Server {
	return httpserver.NewServer(lc, e, ":"+cfg.Port, log)
}
