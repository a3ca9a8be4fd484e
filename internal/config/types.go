package config

import (
	"time"

	"sysconfigd/internal/api"
	"sysconfigd/internal/orchestrator"
)

// Config is sysconfigd's own runtime configuration (spec §4.11), loaded
// from config.yaml with DefaultConfig supplying every field's fallback.
type Config struct {
	SocketPath   string           `yaml:"socket_path"`
	Timeouts     TimeoutsConfig   `yaml:"timeouts"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	LogLevel     string           `yaml:"log_level"`
}

// TimeoutsConfig mirrors orchestrator.Timeouts in a YAML-friendly shape
// (seconds, not time.Duration, since yaml.v3 has no built-in Duration
// support and this project does not carry a custom unmarshaler for it).
type TimeoutsConfig struct {
	ApplySeconds  int `yaml:"apply_seconds"`
	DiffSeconds   int `yaml:"diff_seconds"`
	ActionSeconds int `yaml:"action_seconds"`
}

// ToOrchestratorTimeouts converts to the duration-typed struct the
// orchestrator package consumes.
func (t TimeoutsConfig) ToOrchestratorTimeouts() orchestrator.Timeouts {
	return orchestrator.Timeouts{
		Apply:  time.Duration(t.ApplySeconds) * time.Second,
		Diff:   time.Duration(t.DiffSeconds) * time.Second,
		Action: time.Duration(t.ActionSeconds) * time.Second,
	}
}

// ProvisioningConfig lists the metadata sources the Config Collector probes,
// in the priority order spec §4.3/§9 describe (lower number wins ties).
type ProvisioningConfig struct {
	Sources    []SourceConfig `yaml:"sources"`
	ProbeTimeoutSeconds int   `yaml:"probe_timeout_seconds"`
}

// SourceConfig names one metadata source and its merge priority.
type SourceConfig struct {
	Kind     api.MetadataSourceKind `yaml:"kind"`
	Priority int                    `yaml:"priority"`
	Enabled  bool                   `yaml:"enabled"`
}
