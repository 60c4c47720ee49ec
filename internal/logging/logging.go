// Package logging installs the process-wide structured logger.
package logging

import (
	"log/slog"
	"os"
)

// Init installs a slog.TextHandler as the default logger. Level is read from
// LOG_LEVEL (debug, info, warn, error); unset or unrecognized falls back to
// defaultLevel so the server and the CLI client can pick different defaults.
func Init(defaultLevel slog.Level) {
	level := defaultLevel

	if l, ok := os.LookupEnv("LOG_LEVEL"); ok {
		switch l {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	logger := slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}),
	)
	slog.SetDefault(logger)
}
