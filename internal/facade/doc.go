// Package facade implements the Service Facade: the public surface local
// clients (the sysconfigd CLI, a provisioning loop, an installer) use to
// submit desired state and read current state. It wraps an Orchestrator,
// PluginRegistry, and StateStore behind GetState/ApplyState/RegisterPlugin/
// ExecuteAction/WatchStateChanges, and exposes that surface as MCP tools
// served over a Unix domain socket.
package facade
