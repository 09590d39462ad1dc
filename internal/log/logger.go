package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "vidnest-accounts"

// New builds the process logger. Production emits JSON lines for the log
// shipper; every other environment gets the console writer.
func New(environment string, level string) zerolog.Logger {
	return newLogger(os.Stdout, environment, level)
}

func newLogger(out io.Writer, environment string, level string) zerolog.Logger {
	if environment != "production" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(parseLevel(environment, level))

	return zerolog.New(out).With().
		Timestamp().
		Str("service", serviceName).
		Str("env", environment).
		Logger()
}

// parseLevel honours an explicit level and otherwise falls back to debug
// outside production.
func parseLevel(environment string, level string) zerolog.Level {
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		return parsed
	}
	if environment != "production" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
