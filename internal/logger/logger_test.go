package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	prev := log
	t.Cleanup(func() { log = prev })

	var buf bytes.Buffer
	log = New(NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestInit(t *testing.T) {
	prev := log
	t.Cleanup(func() { log = prev })

	t.Setenv("APP_ENV", "production")
	Init()
	assert.Same(t, log, L())
	assert.False(t, L().Enabled(context.Background(), slog.LevelDebug))

	t.Setenv("APP_ENV", "development")
	Init()
	assert.True(t, L().Enabled(context.Background(), slog.LevelDebug))
}

func TestLevels_KeyValueArgs(t *testing.T) {
	buf := capture(t, slog.LevelDebug)

	Debug("cache tracking set swept", "set", "tracking:sessions:1", "keys", 3)
	Info("member checked in", "gym_id", 1, "session_id", 10)
	Warn("check-in rejected", "code", "NO_SESSION_IN_WINDOW")
	Error("cache set failed", "key", "session:10", "error", errors.New("redis down"))

	recs := lines(t, buf)
	require.Len(t, recs, 4)
	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, float64(3), recs[0]["keys"])
	assert.Equal(t, "INFO", recs[1]["level"])
	assert.Equal(t, float64(10), recs[1]["session_id"])
	assert.Equal(t, "WARN", recs[2]["level"])
	assert.Equal(t, "NO_SESSION_IN_WINDOW", recs[2]["code"])
	assert.Equal(t, "ERROR", recs[3]["level"])
	assert.Equal(t, "redis down", recs[3]["error"])
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	Debug("hidden")
	Info("shown")

	recs := lines(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "shown", recs[0]["msg"])
}
