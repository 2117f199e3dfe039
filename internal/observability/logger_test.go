package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "qa-assistant"})

	logger.WithVariant("hospital").
		WithOperation("query").
		Info().
		Str("method", "fallback").
		Float64("confidence", 0.25).
		Msg("query answered")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "qa-assistant", entry["service"])
	assert.Equal(t, "hospital", entry["variant"])
	assert.Equal(t, "query", entry["operation"])
	assert.Equal(t, "fallback", entry["method"])
	assert.Equal(t, 0.25, entry["confidence"])
	assert.Equal(t, "query answered", entry["message"])
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.NotZero(t, buf.Len())
}

func TestLogger_WithContextTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	ctx := ContextWithTraceID(context.Background(), "req-42")
	logger.WithContext(ctx).Info().Msg("traced")

	assert.Equal(t, "req-42", decodeLine(t, &buf)["trace_id"])
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}
