package observability

import (
	"io"
	"log/slog"
	"strings"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "FAMTREE_LOG_LEVEL"

// NewLogger builds a logger writing to w. format is "json" or "text"
// (anything else means text).
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLogLevel maps debug, warn, error and info (the default).
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
