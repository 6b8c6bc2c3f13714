package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a service-scoped structured logger writing JSON to stdout.
func New(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}
