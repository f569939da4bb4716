package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerHonoursLevel(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger := NewLogger(nil)
	require.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	require.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
