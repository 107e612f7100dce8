package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureDefault(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { SetDefault(prev) })

	buf := &bytes.Buffer{}
	SetDefault(New(buf, cfg))
	return buf
}

func TestWithContextInjectsIDs(t *testing.T) {
	buf := captureDefault(t, Config{Level: "debug", Format: "json"})

	ctx := ContextWithTraceID(context.Background(), "trace-1")
	ctx = ContextWithSpanID(ctx, "span-1")
	ctx = ContextWithRequestID(ctx, "req-1")
	Info(ctx, "priced", "symbol", "AAPL")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "priced", entry["msg"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "span-1", entry["span_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "AAPL", entry["symbol"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureDefault(t, Config{Level: "warn", Format: "text"})

	Info(context.Background(), "hidden")
	Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestInitFileOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1}))

	Info(context.Background(), "to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Empty(t, TraceID(nil))
}
