package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 0.6, cfg.RouterSingleThreshold)
	assert.Equal(t, 0.3, cfg.RouterMultiThreshold)
	assert.Equal(t, 4, cfg.RouterMaxFanOut)
	assert.Equal(t, 15*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 3, cfg.ToolMaxAttempts)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRequiresProviderKey(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "cohere")

	_, err := Load()
	assert.ErrorContains(t, err, "MODEL_PROVIDER")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REQUEST_TIMEOUT", "30s")
	t.Setenv("ROUTER_MAX_FANOUT", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RouterMaxFanOut)
}
