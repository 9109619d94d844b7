// Package logging builds the zerolog.Logger every component in this service
// is constructed with.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates the root logger for the process, tagged with service name and
// version, formatted per level/format.
func New(serviceName, serviceVersion, level, format string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var base zerolog.Logger
	if format == "console" || format == "pretty" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		base = zerolog.New(output).With().Timestamp().Logger()
	} else {
		base = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return base.With().
		Str("service", serviceName).
		Str("version", serviceVersion).
		Logger()
}

// WithComponent returns a logger tagged with the given component name.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}
