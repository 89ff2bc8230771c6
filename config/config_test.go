package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/conductor/config"
)

func TestDefaults(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, c.PollInterval)
	assert.Equal(t, 10*time.Second, c.SeekThreshold)
	assert.Equal(t, 30*time.Second, c.SeekTarget)
	assert.Equal(t, time.Second, c.SwapInterval)
	assert.Equal(t, 26, c.PatternModulus)
	assert.Equal(t, "test-pipeline", c.PipelineName)
	assert.Equal(t, config.DefaultURI, c.URI)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CONDUCTOR_POLL_INTERVAL", "250ms")
	t.Setenv("CONDUCTOR_DEBUG", "true")
	c, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, c.PollInterval)
	assert.True(t, c.Debug)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	err := os.WriteFile(path, []byte("swap_interval: 2s\npattern_modulus: 10\nlog_format: json\n"), 0o600)
	require.NoError(t, err)

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, c.SwapInterval)
	assert.Equal(t, 10, c.PatternModulus)
	assert.Equal(t, "json", c.LogFormat)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("CONDUCTOR_PATTERN_MODULUS", "0")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "pattern_modulus")
}
