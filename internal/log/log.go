// Package log centralizes sszkp's structured logging, following the
// same zerolog-through-a-thin-wrapper convention gnark's own
// backend/*/prove.go uses (gnark's "logger" package).
package log

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Logger returns the process-wide structured logger. Level defaults
// to info; set SSZKP_LOG_LEVEL=debug|trace|warn|error to override.
func Logger() *zerolog.Logger {
	once.Do(func() {
		lvl := zerolog.InfoLevel
		if s := os.Getenv("SSZKP_LOG_LEVEL"); s != "" {
			if parsed, err := zerolog.ParseLevel(s); err == nil {
				lvl = parsed
			}
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(lvl).
			With().Timestamp().Logger()
	})
	return &logger
}
