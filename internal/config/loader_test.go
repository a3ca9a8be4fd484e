package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	overlay := struct {
		SocketPath string `yaml:"socket_path"`
		Timeouts   struct {
			ApplySeconds int `yaml:"apply_seconds"`
		} `yaml:"timeouts"`
	}{SocketPath: "/tmp/custom.sock"}
	overlay.Timeouts.ApplySeconds = 600

	data, err := yaml.Marshal(&overlay)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sock", cfg.SocketPath)
	assert.Equal(t, 600, cfg.Timeouts.ApplySeconds)
	// Fields absent from the overlay keep DefaultConfig's values.
	assert.Equal(t, DefaultConfig().Provisioning, cfg.Provisioning)
}

func TestLoadConfig_MalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultSocketPath_NonRootUsesRuntimeDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("test assumes non-root execution")
	}
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/sysconfig.sock", DefaultSocketPath())
}
