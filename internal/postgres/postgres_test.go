package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, slogLevel(tracelog.LogLevelTrace))
	assert.Equal(t, slog.LevelDebug, slogLevel(tracelog.LogLevelDebug))
	assert.Equal(t, slog.LevelInfo, slogLevel(tracelog.LogLevelInfo))
	assert.Equal(t, slog.LevelWarn, slogLevel(tracelog.LogLevelWarn))
	assert.Equal(t, slog.LevelError, slogLevel(tracelog.LogLevelError))
}

func TestTracerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	quiet := newTracer(logger, false)
	assert.Equal(t, tracelog.LogLevelError, quiet.LogLevel)

	loud := newTracer(logger, true)
	assert.Equal(t, tracelog.LogLevelInfo, loud.LogLevel)

	loud.Logger.Log(context.Background(), tracelog.LogLevelInfo, "Query", map[string]any{"sql": "select 1"})
	require.Contains(t, buf.String(), "component=pgx")
	assert.Contains(t, buf.String(), `sql="select 1"`)
}
