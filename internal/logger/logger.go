package logger

import (
	"log/slog"
	"os"

	"github.com/polkiloo/orderboard/internal/config"
)

// New creates a JSON slog.Logger tagged with the service name.
func New(cfg *config.Config) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(cfg.LogLevel)})
	return slog.New(handler).With(slog.String("service", "orderboard"))
}

// ParseLevel maps a configured level name to slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch name {
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
