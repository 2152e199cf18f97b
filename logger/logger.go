// Package logger builds the zerolog loggers used across the server.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/site-planner/config"
)

var output io.Writer = os.Stdout

// Setup applies the logging section globally: level, and console output when
// the format is "console" or APP_ENV=dev.
func Setup(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" || strings.EqualFold(os.Getenv("APP_ENV"), "dev") {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	} else {
		output = os.Stdout
	}
}

// New returns a logger tagged with component.
func New(component string) zerolog.Logger {
	return NewWithWriter(output, component)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, component string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}
