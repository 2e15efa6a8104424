// Package logging builds the process root logger. The level is applied
// globally so the config watcher can raise or lower verbosity at
// runtime without re-wiring derived loggers.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns the root logger. With console on, output is the
// human-readable writer; otherwise one JSON line per entry.
func New(level string, console bool) zerolog.Logger {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
	zerolog.SetGlobalLevel(parseLevel(level, zerolog.InfoLevel))

	var out io.Writer = os.Stdout
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: timeFormat}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// SetLevel swaps the global level; unknown names keep the current one.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level, zerolog.GlobalLevel()))
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return def
	}
}
