package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NProcs)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_ReadsExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nprocs: 8\ndebug: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.NProcs)
	assert.True(t, cfg.Debug)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("SOS_NPROCS", "16")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.NProcs)
}
