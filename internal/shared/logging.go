package shared

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// InitLogger installs the process logger. Logs go to stderr so that
// reports written to stdout stay machine-readable.
func InitLogger(format, level string) *slog.Logger {
	return initLogger(os.Stderr, format, level)
}

func initLogger(w io.Writer, format, level string) *slog.Logger {
	var h slog.Handler
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if strings.ToLower(format) == "text" {
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
