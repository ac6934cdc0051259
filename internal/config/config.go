// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config is populated from environment variables by Load.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	DatabaseURL    string `env:"DATABASE_URL,required"`
	RedisURL       string `env:"REDIS_URL,required"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	RateLimitAPIEnabled    bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitPublicEnabled bool `env:"RATE_LIMIT_PUBLIC_ENABLED" envDefault:"true"`
	RateLimitPublicRPS     int  `env:"RATE_LIMIT_PUBLIC_RPS" envDefault:"5"`
	RateLimitPublicBurst   int  `env:"RATE_LIMIT_PUBLIC_BURST" envDefault:"10"`

	// Comma-separated, e.g. "https://app.migestor.es,http://localhost:5173".
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
	MaxRequestBodySize int64  `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	SchedulerEnabled    bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	SchedulerInterval   time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1h"`
	SchedulerLockTTL    time.Duration `env:"SCHEDULER_LOCK_TTL" envDefault:"10m"`
	SchedulerMaxCatchUp int           `env:"SCHEDULER_MAX_CATCH_UP" envDefault:"24"`

	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL" envDefault:"10m"`

	// Civil "today" for due dates and template generation.
	Timezone string `env:"TIMEZONE" envDefault:"Europe/Madrid"`

	location *time.Location
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	var out []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o := strings.TrimSpace(origin); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Location returns the loaded Timezone. Load guarantees it is valid.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// RedactedDatabaseURL hides the password in DatabaseURL for log output.
func (c *Config) RedactedDatabaseURL() string {
	return redactURL(c.DatabaseURL)
}

// Load parses the environment. Missing required variables, an unknown
// timezone or non-positive scheduler settings are errors.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	if cfg.SchedulerInterval <= 0 {
		return nil, fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if cfg.SchedulerMaxCatchUp < 1 {
		return nil, fmt.Errorf("SCHEDULER_MAX_CATCH_UP must be at least 1")
	}
	return cfg, nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, has := u.User.Password(); has {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
