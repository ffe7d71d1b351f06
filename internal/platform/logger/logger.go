// Package logger constructs the process-wide slog logger. Handlers and
// services receive it by injection; nothing logs through the default logger.
package logger

import (
	"log/slog"
	"os"

	"github.com/eshbtc/travelcheck-sub000/internal/platform/config"
)

// New builds a slog.Logger per the log configuration: text for dev
// readability, JSON for log aggregation in prod.
func New(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
