package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session drivers.
const (
	DriverCookie   = "cookie"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the gateway configuration, read from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	APIBaseURL      string        `env:"API_BASE_URL,required"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"15s"`
	UpstreamRetries uint          `env:"UPSTREAM_RETRIES" envDefault:"2"`

	StoragePassphrase string `env:"STORAGE_PASSPHRASE"`

	SessionDriver     string        `env:"SESSION_DRIVER" envDefault:"cookie"`
	SessionCookie     string        `env:"SESSION_COOKIE" envDefault:"jb_session"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	SessionSweepEvery time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`
	DatabaseURL       string        `env:"DATABASE_URL"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"JOB_CACHE_TTL" envDefault:"10m"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	StaticDir      string   `env:"STATIC_DIR"`

	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"jobboard-gateway"`
}

// Production reports whether the gateway runs in production mode.
func (c Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads the optional .env files and then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.SessionDriver {
	case DriverCookie, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres session driver")
		}
	default:
		return fmt.Errorf("unknown SESSION_DRIVER %q", c.SessionDriver)
	}
	if c.UpstreamTimeout <= 0 {
		return errors.New("UPSTREAM_TIMEOUT must be positive")
	}
	if c.CacheTTL <= 0 || c.SessionTTL <= 0 || c.SessionSweepEvery <= 0 {
		return errors.New("JOB_CACHE_TTL, SESSION_TTL and SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}
