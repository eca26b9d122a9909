// Package logging configures the global zerolog logger for the CLI.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitDefault installs a console logger at info level. Used before flags and
// config have been parsed.
func InitDefault() {
	Init("info", "console", false)
}

// Init installs the global logger. Unknown levels fall back to info, unknown
// formats to console.
func Init(level, format string, noColor bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch format {
	case "json":
		logger = zerolog.New(os.Stderr)
	default:
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    noColor,
		})
	}

	log.Logger = logger.Level(lvl).With().Timestamp().Logger()
}
