package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 40000, cfg.ContextWindow.CharsLimit)
	assert.InDelta(t, 0.2, cfg.ContextWindow.PersonalMemoryRatio, 1e-9)
	assert.True(t, cfg.Delegation.Enabled)
	assert.Equal(t, 5, cfg.Delegation.MaxDepth)
	assert.Empty(t, cfg.Providers)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
system_instructions: "Be terse."
logging:
  level: debug
  format: json
context_window:
  chars_limit: 20000
  personal_memory_ratio: 0.25
delegation:
  enabled: true
  max_depth: 3
providers:
  - id: claude
    vendor: anthropic
    model: claude-sonnet-4-20250514
    api_key: sk-test
  - id: local
    vendor: openai
    model: llama3
    base_url: http://localhost:11434/v1
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Be terse.", cfg.SystemInstructions)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 20000, cfg.ContextWindow.CharsLimit)
	assert.InDelta(t, 0.25, cfg.ContextWindow.PersonalMemoryRatio, 1e-9)
	assert.Equal(t, 3, cfg.Delegation.MaxDepth)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "claude", cfg.Providers[0].ID)
	assert.Equal(t, "anthropic", cfg.Providers[0].Vendor)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Providers[1].BaseURL)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Delegation.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")

	_, err = Load(writeConfig(t, "providers: {not: [valid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	_, err = Load(writeConfig(t, "context_window:\n  personal_memory_ratio: 1.5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "personal_memory_ratio must be in [0,1]")
}
