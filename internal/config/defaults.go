package config

import (
	"os"
	"path/filepath"

	"sysconfigd/internal/api"
)

const defaultProbeTimeoutSeconds = 5

// DefaultConfig returns sysconfigd's default configuration (spec §4.11),
// mirroring the teacher's GetDefaultConfigWithRoles fallback pattern.
func DefaultConfig() Config {
	return Config{
		SocketPath: DefaultSocketPath(),
		Timeouts: TimeoutsConfig{
			ApplySeconds:  300,
			DiffSeconds:   30,
			ActionSeconds: 30,
		},
		Provisioning: ProvisioningConfig{
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			Sources: []SourceConfig{
				{Kind: api.SourceCloudInit, Priority: 0, Enabled: true},
				{Kind: api.SourceEC2, Priority: 10, Enabled: true},
				{Kind: api.SourceGCP, Priority: 10, Enabled: true},
				{Kind: api.SourceAzure, Priority: 10, Enabled: true},
				{Kind: api.SourceOpenStack, Priority: 10, Enabled: true},
				{Kind: api.SourceDigitalOcean, Priority: 10, Enabled: true},
				{Kind: api.SourceSmartOS, Priority: 10, Enabled: true},
				{Kind: api.SourceLocal, Priority: 100, Enabled: true},
			},
		},
		LogLevel: "info",
	}
}

// DefaultSocketPath follows spec §6: a system-wide path for root, a
// per-user XDG runtime path otherwise, falling back to a dotfile under the
// user's home directory when no runtime directory is set.
func DefaultSocketPath() string {
	if os.Geteuid() == 0 {
		return "/var/run/sysconfig.sock"
	}

	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "sysconfig.sock")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sysconfig.sock")
	}
	return filepath.Join(homeDir, ".local", "run", "sysconfig.sock")
}
