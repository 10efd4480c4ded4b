// Package infrastructure wires the cross-cutting runtime pieces: the
// application logger and the OpenTelemetry providers.
package infrastructure

import (
	"log/slog"
	"os"
	"strings"

	"github.com/javannnn/salitemihret-system-sub001/internal/config"
)

// NewLogger builds the application-wide slog logger from configuration.
// JSON output is the default; text output is available for local
// development.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: cfg.Development,
		Level:     parseLogLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
