package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferAdapter(buf *bytes.Buffer) *zerologAdapter {
	return &zerologAdapter{logger: zerolog.New(buf)}
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestZerologAdapter_FieldsFlowThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferAdapter(&buf).With(Fields{"component": "payment"})

	logger.Info(context.Background(), "session created", Fields{"session_id": "sess-1"})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "session created", entry["message"])
	assert.Equal(t, "payment", entry["component"])
	assert.Equal(t, "sess-1", entry["session_id"])
}

func TestZerologAdapter_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := bufferAdapter(&buf)

	logger.Error(context.Background(), "login failed", errors.New("connection refused"))

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "connection refused", entry["error"])
}

func TestZerologAdapter_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := bufferAdapter(&buf)
	_ = parent.With(Fields{"component": "payment"})

	parent.Warn(context.Background(), "plain event")

	entry := decodeEntry(t, &buf)
	_, hasComponent := entry["component"]
	assert.False(t, hasComponent)
}
