package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all demo runtime configuration.
// Tags:
//
//	env: Environment variable name
//	envDefault: Default value if not set
type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"pretty"`

	// Observability
	MetricsAddr string `env:"MCN_METRICS_ADDR" envDefault:":9100"`

	// Demo publisher periods
	HeartbeatInterval time.Duration `env:"MCN_HEARTBEAT_INTERVAL" envDefault:"1s"`
	SysstatInterval   time.Duration `env:"MCN_SYSSTAT_INTERVAL" envDefault:"2s"`

	// Shell echo defaults (overridable per command with -n / -p)
	EchoPeriod time.Duration `env:"MCN_ECHO_PERIOD" envDefault:"500ms"`
	EchoCount  int           `env:"MCN_ECHO_COUNT" envDefault:"10"`
}

// Load reads configuration from a .env file and environment variables.
// Priority: ENV vars > .env file > defaults.
func Load(logger *zerolog.Logger) (*Config, error) {
	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Debug().Msg("no .env file found, using environment variables only")
		}
	} else if logger != nil {
		logger.Info().Msg("loaded configuration from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}

	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}

	if c.MetricsAddr == "" {
		return fmt.Errorf("MCN_METRICS_ADDR is required")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("MCN_HEARTBEAT_INTERVAL must be > 0, got %s", c.HeartbeatInterval)
	}
	if c.SysstatInterval <= 0 {
		return fmt.Errorf("MCN_SYSSTAT_INTERVAL must be > 0, got %s", c.SysstatInterval)
	}
	if c.EchoPeriod <= 0 {
		return fmt.Errorf("MCN_ECHO_PERIOD must be > 0, got %s", c.EchoPeriod)
	}
	if c.EchoCount < 1 {
		return fmt.Errorf("MCN_ECHO_COUNT must be >= 1, got %d", c.EchoCount)
	}
	return nil
}

// LogConfig logs the effective configuration using structured logging.
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Str("metrics_addr", c.MetricsAddr).
		Dur("heartbeat_interval", c.HeartbeatInterval).
		Dur("sysstat_interval", c.SysstatInterval).
		Dur("echo_period", c.EchoPeriod).
		Int("echo_count", c.EchoCount).
		Msg("configuration loaded")
}
