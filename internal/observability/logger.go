package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/lmittmann/tint"
)

// NewLogger creates the process logger and sets it as the slog default.
// format "text" selects a colourised handler for local runs; anything else
// produces JSON.
func NewLogger(level, format string) *slog.Logger {
	if !strings.EqualFold(format, "text") {
		return sharedobs.NewLogger(level, format)
	}
	logger := slog.New(newTextHandler(os.Stdout, level))
	slog.SetDefault(logger)
	return logger
}

func newTextHandler(w io.Writer, level string) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: time.Kitchen,
	})
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
