package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	err := os.WriteFile(configPath, []byte(`address = "0.0.0.0:7670"`), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:7670", cfg.Address)
}

func TestLoad_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	err := os.WriteFile(configPath, []byte(`address = "0.0.0.0:7670"`), 0644)
	require.NoError(t, err)

	// HOSTAGENT_ADDRESS should override the file's address.
	t.Setenv("HOSTAGENT_ADDRESS", "127.0.0.1:9999")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Address)
}

func TestLoad_MetricsAddressOptional(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	err := os.WriteFile(configPath, []byte("address = \"0.0.0.0:7670\"\nmetrics_address = \"0.0.0.0:9090\""), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.MetricsAddress)
}

func TestLoad_MissingAddress(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	err := os.WriteFile(configPath, []byte(""), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}
