package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/fintrack-trend-cube/internal/config"
)

// NewLogger creates a JSON slog.Logger at the configured level. Unknown
// levels fall back to info. Source locations are only emitted at debug to
// keep production log lines compact.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler)
	logger.Info("logger initialized", "level", level, "app", cfg.Application.Name)

	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
