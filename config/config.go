// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coterie-ai/coterie/provider"
)

// Config is the root daemon configuration.
type Config struct {
	// SystemInstructions is prepended to every prompt.
	SystemInstructions string `yaml:"system_instructions"`

	Logging       LoggingConfig       `yaml:"logging"`
	ContextWindow ContextWindowConfig `yaml:"context_window"`
	Delegation    DelegationConfig    `yaml:"delegation"`

	// Providers lists the selectable model providers.
	Providers []provider.Config `yaml:"providers"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// ContextWindowConfig bounds what is sent to the model per turn.
type ContextWindowConfig struct {
	// CharsLimit is the total character budget per turn. With 0 no prior
	// history fits the window; only the current message is sent.
	CharsLimit int `yaml:"chars_limit"`
	// PersonalMemoryRatio is the share of the budget reserved for a named
	// agent's personal memory, in [0,1].
	PersonalMemoryRatio float64 `yaml:"personal_memory_ratio"`
}

// DelegationConfig controls sub-agent delegation.
type DelegationConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxDepth bounds the delegation tree; 0 means unbounded.
	MaxDepth int `yaml:"max_depth"`
}

// Default returns the baseline configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging:       LoggingConfig{Level: "info", Format: "text"},
		ContextWindow: ContextWindowConfig{CharsLimit: 40000, PersonalMemoryRatio: 0.2},
		Delegation:    DelegationConfig{Enabled: true, MaxDepth: 5},
	}
}

// Load reads and parses a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.ContextWindow.PersonalMemoryRatio < 0 || cfg.ContextWindow.PersonalMemoryRatio > 1 {
		return nil, fmt.Errorf("context_window.personal_memory_ratio must be in [0,1]")
	}
	return cfg, nil
}
