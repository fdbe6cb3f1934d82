package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"APP_ENV"   envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	BcryptCost          int           `env:"BCRYPT_COST"           envDefault:"12"`
	JWTSecret           string        `env:"JWT_SECRET"`
	JWTAlgorithm        string        `env:"JWT_ALGORITHM"         envDefault:"HS256"`
	JWTIssuer           string        `env:"JWT_ISSUER"            envDefault:"secure-session-auth-service"`
	JWTAudience         string        `env:"JWT_AUDIENCE"          envDefault:"secure-session-auth-clients"`
	SessionSalt         string        `env:"SESSION_SALT"`
	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL"      envDefault:"15m"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL"     envDefault:"168h"`
	MaxFingerprintValue int64         `env:"MAX_FINGERPRINT_VALUE" envDefault:"100000000"`

	DatabaseDriver    string        `env:"DATABASE_DRIVER"      envDefault:"postgres"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	DBMinConns        int           `env:"DB_MIN_CONNS"         envDefault:"4"`
	DBMaxConns        int           `env:"DB_MAX_CONNS"         envDefault:"16"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	RedisEnabled               bool          `env:"REDIS_ENABLED"                 envDefault:"false"`
	RedisAddr                  string        `env:"REDIS_ADDR"                    envDefault:"localhost:6379"`
	RedisPassword              string        `env:"REDIS_PASSWORD"`
	RedisDB                    int           `env:"REDIS_DB"                      envDefault:"0"`
	NegativeLookupCacheEnabled bool          `env:"NEGATIVE_LOOKUP_CACHE_ENABLED" envDefault:"true"`
	NegativeLookupCacheTTL     time.Duration `env:"NEGATIVE_LOOKUP_CACHE_TTL"     envDefault:"30s"`
	UserEventsChannel          string        `env:"USER_EVENTS_CHANNEL"           envDefault:"users.events"`

	OTELServiceName           string        `env:"OTEL_SERVICE_NAME"            envDefault:"secure-session-auth-service"`
	OTELEnvironment           string        `env:"OTEL_ENVIRONMENT"             envDefault:"development"`
	OTELExporterOTLPEndpoint  string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"  envDefault:"localhost:4317"`
	OTELExporterOTLPInsecure  bool          `env:"OTEL_EXPORTER_OTLP_INSECURE"  envDefault:"true"`
	OTELMetricsEnabled        bool          `env:"OTEL_METRICS_ENABLED"         envDefault:"false"`
	OTELTracingEnabled        bool          `env:"OTEL_TRACING_ENABLED"         envDefault:"false"`
	OTELLogsEnabled           bool          `env:"OTEL_LOGS_ENABLED"            envDefault:"false"`
	OTELMetricsExportInterval time.Duration `env:"OTEL_METRICS_EXPORT_INTERVAL" envDefault:"10s"`
	OTELTraceSamplingRatio    float64       `env:"OTEL_TRACE_SAMPLING_RATIO"    envDefault:"1.0"`

	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" envDefault:"2s"`
}

// Load reads the process environment once. The returned Config is not
// mutated afterwards.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		recordConfigValidationEvent(context.Background(), os.Getenv("APP_ENV"), err)
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Environment, nil)
	return cfg, nil
}

func load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fromEnvError(err)
	}
	cfg.DatabaseDriver = strings.ToLower(strings.TrimSpace(cfg.DatabaseDriver))
	if err := cfg.Validate(); err != nil {
		return nil, &InvalidError{Err: err}
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM %q is not supported", c.JWTAlgorithm))
	}
	if len(c.SessionSalt) < 16 {
		errs = append(errs, errors.New("SESSION_SALT must be at least 16 bytes"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 4 and 31"))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL"))
	}
	if c.MaxFingerprintValue <= 0 {
		errs = append(errs, errors.New("MAX_FINGERPRINT_VALUE must be positive"))
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS and DB_MAX_CONNS must satisfy 0 <= min <= max, max >= 1"))
	}
	if c.RedisEnabled && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required when REDIS_ENABLED=true"))
	}
	if c.OTELTraceSamplingRatio < 0 || c.OTELTraceSamplingRatio > 1 {
		errs = append(errs, errors.New("OTEL_TRACE_SAMPLING_RATIO must be within [0,1]"))
	}
	return errors.Join(errs...)
}

// fromEnvError turns the library's per-field parse failures into ParseErrors
// keyed by environment variable name.
func fromEnvError(err error) error {
	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return fmt.Errorf("load env: %w", err)
	}
	errs := make([]error, 0, len(agg.Errors))
	for _, e := range agg.Errors {
		var pe env.ParseError
		if errors.As(e, &pe) {
			errs = append(errs, &ParseError{Key: envKey(pe.Name), Err: pe.Err})
			continue
		}
		errs = append(errs, fmt.Errorf("load env: %w", e))
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// envKey maps a Config field name back to its env tag.
func envKey(field string) string {
	f, ok := reflect.TypeOf(Config{}).FieldByName(field)
	if !ok {
		return field
	}
	key, _, _ := strings.Cut(f.Tag.Get("env"), ",")
	if key == "" {
		return field
	}
	return key
}
