package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "READERPOS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv             = "READERPOS_APP_ENV"
	EnvPort               = "READERPOS_APP_PORT"
	EnvLogLevel           = "READERPOS_LOG_LEVEL"
	EnvSquareAccessToken  = "READERPOS_SQUARE_ACCESS_TOKEN"
	EnvSquareAppID        = "READERPOS_SQUARE_APPLICATION_ID"
	EnvSquareLocationID   = "READERPOS_SQUARE_LOCATION_ID"
	EnvSquareEnv          = "READERPOS_SQUARE_ENV"
	EnvSquarePaymentTTL   = "READERPOS_SQUARE_PAYMENT_TIMEOUT"
	EnvDBDriver           = "READERPOS_DB_DRIVER"
	EnvDBDSN              = "READERPOS_DB_DSN"
	EnvRedisURL           = "READERPOS_REDIS_URL"
	EnvSessionCurrency    = "READERPOS_SESSION_FALLBACK_CURRENCY"
	EnvSessionChargeGuard = "READERPOS_SESSION_CHARGE_GUARD_TTL"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"
)

type Config struct {
	App       AppConfig
	Square    SquareConfig
	DB        DBConfig
	Redis     RedisConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"READERPOS_APP_ENV" required:"true"`
	Port         string `envconfig:"READERPOS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"READERPOS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"READERPOS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"READERPOS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type SquareConfig struct {
	AccessToken     string        `envconfig:"READERPOS_SQUARE_ACCESS_TOKEN" required:"true"`
	ApplicationID   string        `envconfig:"READERPOS_SQUARE_APPLICATION_ID" required:"true"`
	LocationID      string        `envconfig:"READERPOS_SQUARE_LOCATION_ID" required:"true"`
	Env             string        `envconfig:"READERPOS_SQUARE_ENV" default:"sandbox"`
	PaymentTimeout  time.Duration `envconfig:"READERPOS_SQUARE_PAYMENT_TIMEOUT" default:"60s"`
	DefaultSourceID string        `envconfig:"READERPOS_SQUARE_DEFAULT_SOURCE_ID" default:"cnon:card-nonce-ok"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type DBConfig struct {
	Driver string `envconfig:"READERPOS_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"READERPOS_DB_DSN" default:"file:readerpos.db?_foreign_keys=on"`

	MaxOpenConns    int           `envconfig:"READERPOS_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"READERPOS_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"READERPOS_DB_CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"READERPOS_DB_AUTO_MIGRATE" default:"true"`
}

func (db *DBConfig) validate() error {
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	switch db.Driver {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvDBDriver, DBDriverSQLite, DBDriverPostgres)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

// RedisConfig is optional; an empty URL disables the charge guard.
type RedisConfig struct {
	URL          string        `envconfig:"READERPOS_REDIS_URL"`
	PoolSize     int           `envconfig:"READERPOS_REDIS_POOL_SIZE" default:"5"`
	DialTimeout  time.Duration `envconfig:"READERPOS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READERPOS_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"READERPOS_REDIS_WRITE_TIMEOUT" default:"3s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

// SessionConfig describes the register session. An empty ID gets a fresh
// UUID at startup.
type SessionConfig struct {
	ID               string        `envconfig:"READERPOS_SESSION_ID"`
	FallbackCurrency string        `envconfig:"READERPOS_SESSION_FALLBACK_CURRENCY" default:"USD"`
	ChargeGuardTTL   time.Duration `envconfig:"READERPOS_SESSION_CHARGE_GUARD_TTL" default:"2m"`
}

// RateLimitConfig throttles register actions per client IP. Limits only apply
// when redis is configured.
type RateLimitConfig struct {
	Window      time.Duration `envconfig:"READERPOS_RATE_LIMIT_WINDOW" default:"1m"`
	KeypadLimit int           `envconfig:"READERPOS_RATE_LIMIT_KEYPAD" default:"600"`
	ChargeLimit int           `envconfig:"READERPOS_RATE_LIMIT_CHARGE" default:"20"`
	// TrustProxy keys limits by the last X-Forwarded-For entry instead of the
	// socket address. Only enable behind a proxy that always appends it.
	TrustProxy bool `envconfig:"READERPOS_RATE_LIMIT_TRUST_PROXY" default:"false"`
}
