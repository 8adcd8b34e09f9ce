package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(level LogLevel) (*DaemonLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return l, &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogger_KeyValueArgsBecomeAttributes(t *testing.T) {
	l, buf := jsonLogger(LogLevelInfo)
	l = l.WithComponent("chat").WithConversation("conv-1")

	l.Error("turn failed", "provider_id", "mock", "error", errors.New("boom"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "turn failed", entry["msg"])
	assert.Equal(t, "chat", entry["component"])
	assert.Equal(t, "conv-1", entry["conversation_id"])
	assert.Equal(t, "mock", entry["provider_id"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_LevelGate(t *testing.T) {
	l, buf := jsonLogger(LogLevelWarn)
	l.Info("hidden", "k", "v")
	assert.Empty(t, buf.Bytes())

	l.Warn("visible")
	entry := lastEntry(t, buf)
	assert.Equal(t, "visible", entry["msg"])
}

func TestLogger_LogModelCallAttributes(t *testing.T) {
	l, buf := jsonLogger(LogLevelInfo)
	l.WithConversation("conv-9").LogModelCall("openai", 42*time.Millisecond, nil)

	entry := lastEntry(t, buf)
	assert.Equal(t, "Model call completed", entry["msg"])
	assert.Equal(t, "openai", entry["provider_id"])
	assert.Equal(t, "conv-9", entry["conversation_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel(" WARNING "))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("anything-else"))
}
