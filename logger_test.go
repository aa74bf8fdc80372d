package tierann

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.WithK(10).WithDimension(128).Info("configured")
	out := buf.String()
	assert.Contains(t, out, `"k":10`)
	assert.Contains(t, out, `"dimension":128`)
}

func TestLogBuild(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, nil))

	logger.LogBuild(context.Background(), 1000, 4, nil)
	require.Contains(t, buf.String(), "build completed")

	buf.Reset()
	logger.LogBuild(context.Background(), 1000, 4, assert.AnError)
	assert.Contains(t, buf.String(), "build failed")
}

func TestNoopLoggerDiscards(t *testing.T) {
	logger := NoopLogger()
	// Must not panic and must accept all levels.
	logger.Debug("a")
	logger.Info("b")
	logger.Error("c")
}
