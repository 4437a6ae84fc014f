package observability

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestTextHandler_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTextHandler(&buf, "warn"))

	logger.Info("documents normalized", "rows", 3)
	assert.Empty(t, buf.String())

	logger.Warn("unseen weather category", "description", "volcanic ash")
	assert.Contains(t, buf.String(), "unseen weather category")
	assert.Contains(t, buf.String(), "volcanic ash")
}
