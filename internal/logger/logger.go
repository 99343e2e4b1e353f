package logger

import (
	"os"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// New returns the bootstrap logger. It runs at debug until configuration is
// loaded, at which point the configured level is applied globally.
func New() zerolog.Logger {
	return SetLevel(zerolog.DebugLevel)
}

// SetLevel builds a stdout JSON logger at the given level.
func SetLevel(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(level)
}

// Parse maps a configured level name to a zerolog level. Unrecognized names
// fall back to info rather than erroring out at startup.
func Parse(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

var Module = fx.Provide(New)
