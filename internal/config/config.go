// Package config loads the gateway configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/satizap/gateway/pkg/environment"
	"github.com/satizap/gateway/pkg/httpserver"
	"github.com/satizap/gateway/pkg/pg"
	"github.com/satizap/gateway/pkg/redis"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

var (
	ErrParsingConfig        = errors.New("failed to parse environment variables into config")
	ErrInvalidCacheDriver   = errors.New("TENANT_CACHE_DRIVER must be memory or redis")
	ErrRedisDisabled        = errors.New("TENANT_CACHE_DRIVER=redis requires REDIS_ENABLED=true")
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is required outside development")
	ErrDatabaseRequired     = errors.New("PG_CONN_URL is required outside development")
)

// Tenant tunes resolution.
type Tenant struct {
	CacheTTL         time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	CacheDriver      string        `env:"TENANT_CACHE_DRIVER" envDefault:"memory"`
	LookupTimeout    time.Duration `env:"TENANT_LOOKUP_TIMEOUT" envDefault:"3s"`
	FailOpen         bool          `env:"TENANT_FAIL_OPEN" envDefault:"true"`
	CoalesceLookups  bool          `env:"TENANT_COALESCE_LOOKUPS" envDefault:"false"`
	BreakerThreshold int           `env:"TENANT_BREAKER_THRESHOLD" envDefault:"5"`
	BreakerRecovery  time.Duration `env:"TENANT_BREAKER_RECOVERY" envDefault:"30s"`
}

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"satizap-gateway"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	// DevTenants seeds the in-memory association provider used when Postgres
	// is not configured, e.g. DEV_TENANTS=acme,beta.
	DevTenants []string `env:"DEV_TENANTS" envSeparator:","`

	MigrateOnStart bool `env:"PG_MIGRATE_ON_START" envDefault:"false"`
	RedisEnabled   bool `env:"REDIS_ENABLED" envDefault:"false"`

	Tenant Tenant
	HTTP   httpserver.Config
	PG     pg.Config
	Redis  redis.Config
}

// Environment returns the parsed APP_ENV. An unrecognised value yields the
// empty Environment, which Validate rejects.
func (c Config) Environment() environment.Environment {
	env, _ := environment.Parse(c.AppEnv)
	return env
}

// Validate reports every inconsistency at once.
func (c Config) Validate() error {
	var errs []error
	env, err := environment.Parse(c.AppEnv)
	if err != nil {
		errs = append(errs, err)
	}
	switch c.Tenant.CacheDriver {
	case CacheDriverMemory:
	case CacheDriverRedis:
		if !c.RedisEnabled {
			errs = append(errs, ErrRedisDisabled)
		}
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidCacheDriver, c.Tenant.CacheDriver))
	}
	if !env.IsDevelopment() {
		if c.SessionSecret == "" {
			errs = append(errs, ErrMissingSessionSecret)
		}
		if !c.PG.Enabled() {
			errs = append(errs, ErrDatabaseRequired)
		}
	}
	return errors.Join(errs...)
}

// Load reads .env files (missing files are ignored), then the process
// environment, and validates the result. Variables already set in the
// process win over .env values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, cfg.Validate()
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, cfg.Validate()
}
