// Package logger builds the structured logger used by the MCP server.
//
// Stdout carries the JSON-RPC protocol, so logs always go to stderr (or a
// writer supplied by tests). Core packages do not log; the server and the
// command attach a component name to every event.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = zerolog.InfoLevel

// ConfigureGlobals sets zerolog's process-wide field formats: Unix
// timestamps and integer durations. Call it once at startup, before any
// logger is built.
func ConfigureGlobals() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.DurationFieldInteger = true
}

// New returns a JSON logger writing to w at the given level. Every event
// carries a timestamp in the format chosen by ConfigureGlobals. New does not
// modify package-level zerolog settings.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole returns a human-readable logger for interactive use.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05", NoColor: true}, level)
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// ParseLevel maps debug, info, warn, warning or error to a zerolog level.
// An empty string yields DefaultLevel.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return DefaultLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}
