package di

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gorm.io/gorm"

	"github.com/sandeepkv93/secure-session-auth-service/internal/config"
	"github.com/sandeepkv93/secure-session-auth-service/internal/health"
	"github.com/sandeepkv93/secure-session-auth-service/internal/observability"
	"github.com/sandeepkv93/secure-session-auth-service/internal/repository"
	"github.com/sandeepkv93/secure-session-auth-service/internal/security"
	"github.com/sandeepkv93/secure-session-auth-service/internal/service"
)

const cleanupTimeout = 5 * time.Second

type logging struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
}

// provideLogging owns the OTEL LoggerProvider; its cleanup runs last so
// records written while other resources close still ship.
func provideLogging(ctx context.Context, cfg *config.Config) (logging, func(), error) {
	logger, lp, err := observability.NewLogger(ctx, cfg, os.Stderr)
	if err != nil {
		return logging{}, nil, err
	}
	cleanup := func() {
		if lp != nil {
			shutdown(logger, "logger_provider", lp.Shutdown)
		}
	}
	return logging{logger: logger, provider: lp}, cleanup, nil
}

func provideLogger(l logging) *slog.Logger { return l.logger }

func provideRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*observability.Runtime, func(), error) {
	rt, err := observability.InitRuntime(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return rt, func() { shutdown(logger, "telemetry", rt.Shutdown) }, nil
}

func provideDB(cfg *config.Config, logger *slog.Logger) (*gorm.DB, func(), error) {
	db, err := repository.OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil {
			logger.Warn("close database failed", "error", err)
		}
	}
	return db, cleanup, nil
}

// provideRedis returns nil when Redis is disabled; every consumer treats a nil
// client as "no shared backend".
func provideRedis(cfg *config.Config, logger *slog.Logger) (redis.UniversalClient, func()) {
	if !cfg.RedisEnabled {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close redis client failed", "error", err)
		}
	}
	return client, cleanup
}

func shutdown(logger *slog.Logger, resource string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("shutdown failed", "resource", resource, "error", err)
	}
}

func provideNegativeLookupCache(cfg *config.Config, client redis.UniversalClient) service.NegativeLookupCacheStore {
	switch {
	case !cfg.NegativeLookupCacheEnabled:
		return service.NewNoopNegativeLookupCacheStore()
	case client != nil:
		return service.NewRedisNegativeLookupCacheStore(client, "")
	default:
		return service.NewInMemoryNegativeLookupCacheStore(0)
	}
}

func provideUserEventPublisher(cfg *config.Config, client redis.UniversalClient) service.UserEventPublisher {
	if client == nil {
		return service.NoopUserEventPublisher{}
	}
	return service.NewRedisUserEventPublisher(client, cfg.UserEventsChannel)
}

func providePasswordHasher(cfg *config.Config) (*security.PasswordHasher, error) {
	return security.NewPasswordHasher(cfg.BcryptCost)
}

func provideJWTManager(cfg *config.Config) (*security.JWTManager, error) {
	m, err := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}
	return m, nil
}

func provideFingerprinter(cfg *config.Config) *security.Fingerprinter {
	return security.NewFingerprinter(cfg.SessionSalt)
}

func provideReadiness(cfg *config.Config, db *gorm.DB, client redis.UniversalClient) *health.ProbeRunner {
	checkers := []health.Checker{health.NewDBChecker(db)}
	if client != nil {
		checkers = append(checkers, health.NewRedisChecker(client))
	}
	return health.NewProbeRunner(cfg.HealthCheckTimeout, 0, checkers...)
}

var ConfigSet = wire.NewSet(
	provideLogging,
	provideLogger,
	provideRuntime,
)

var StorageSet = wire.NewSet(
	provideDB,
	provideRedis,
	repository.NewUserRepository,
	repository.NewSessionRepository,
	provideNegativeLookupCache,
	provideUserEventPublisher,
)

var SecuritySet = wire.NewSet(
	providePasswordHasher,
	provideJWTManager,
	provideFingerprinter,
	security.NewRandomSecretGenerator,
	wire.Bind(new(service.CredentialHasher), new(*security.PasswordHasher)),
	wire.Bind(new(service.TokenCodec), new(*security.JWTManager)),
	wire.Bind(new(service.TokenFingerprinter), new(*security.Fingerprinter)),
	wire.Bind(new(security.SecretGenerator), new(security.RandomSecretGenerator)),
)

var ServiceSet = wire.NewSet(
	service.NewAuthConfig,
	service.NewTokenService,
	service.NewAuthService,
	service.NewUserService,
	service.NewSessionService,
)

var HealthSet = wire.NewSet(provideReadiness)
