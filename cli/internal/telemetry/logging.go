// Package telemetry sets up structured logging for the CLI.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel reads LOG_LEVEL (DEBUG, INFO, WARN, ERROR). Default: WARN, so
// log lines do not interleave with the prompts; debug forces DEBUG.
func LogLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// SetupLogger builds the process logger and installs it as the slog default.
//
// LOG_FORMAT selects the handler:
//   - "text" (default) - human readable
//   - "json"           - for log shipping
func SetupLogger(w io.Writer, debug bool) *slog.Logger {
	level := LogLevel(debug)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
