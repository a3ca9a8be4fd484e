package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sysconfig.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: info\n"), 0o644))

	reloaded := make(chan Config, 1)
	w := NewWatcher(path, func(cfg Config) { reloaded <- cfg })
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, "debug", cfg.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
