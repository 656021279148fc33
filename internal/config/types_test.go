package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestConfig_ZeroValue verifies that the zero value of Config is usable
// (nil Engine pointer is handled gracefully by callers).
func TestConfig_ZeroValue(t *testing.T) {
	t.Parallel()

	var cfg Config
	assert.Nil(t, cfg.Engine)
}

// TestEngineConfig_ZeroValue verifies the zero value of EngineConfig has
// empty/false fields, matching "field not present in TOML" semantics used
// by extractEngineFlat.
func TestEngineConfig_ZeroValue(t *testing.T) {
	t.Parallel()

	var e EngineConfig
	assert.Empty(t, e.Target)
	assert.Empty(t, e.Provider)
	assert.Empty(t, e.Model)
	assert.Nil(t, e.Tags)
	assert.False(t, e.CodeFence)
}
