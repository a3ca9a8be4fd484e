// Package logging provides the structured logging used by every subsystem of
// sysconfigd: the orchestrator, the plugin registry, the plugin proxy, the
// provisioning pipeline, and the CLI.
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("Orchestrator", "applying desired state (%d bytes)", len(payload))
//	logging.Error("Registry", err, "failed to register plugin %s", pluginID)
//
// Log calls are no-ops until InitForCLI has been called; callers that log
// before startup configuration is loaded (a rare case) lose those lines
// rather than panicking.
//
// # Subsystem naming
//
// The first argument to every call names the emitting component, matching
// package names where practical: "Registry", "StateStore", "Orchestrator",
// "PluginProxy", "Facade", "Provisioning".
//
// # Audit events
//
// Audit wraps security-relevant actions (plugin registration, action
// execution) in a single-line, grep-friendly "[AUDIT] key=value ..." format
// distinct from ordinary log lines.
package logging
