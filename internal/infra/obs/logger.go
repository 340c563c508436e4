package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger configures slog logger with colorful dev output and JSON for production-like envs.
func NewLogger(env, level string) *slog.Logger {
	return newLogger(os.Stdout, env, level)
}

func newLogger(w io.Writer, env, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if env == "dev" || env == "local" {
		handler := tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.RFC3339,
			AddSource:  true,
		})
		return slog.New(handler)
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	})
	return slog.New(handler).With("service", "staybook")
}

// ParseLevel maps LOG_LEVEL values onto slog levels; unknown values mean info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
