package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level  string // minimum log level: debug, info, warn, error
	Format string // output format: json or pretty
}

// New creates a structured logger.
//
// JSON output is the default so log lines can be shipped as-is; pretty format
// is for a local console. Timestamps are RFC3339 and every line carries the
// service field for filtering.
func New(config Config) zerolog.Logger {
	var level zerolog.Level
	switch config.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer = os.Stdout
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", "umcn").
		Logger()
}

// InitGlobal installs the configured logger as the zerolog global, which the
// bus itself logs through. Call once at startup, before any topic is touched.
func InitGlobal(config Config) zerolog.Logger {
	logger := New(config)
	log.Logger = logger
	return logger
}
