// Package config loads sysconfigd's own runtime configuration: the facade
// socket path, per-operation timeouts, and the provisioning source list.
package config
