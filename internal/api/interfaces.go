package api

import "context"

// PluginRegistry maps plugin identity to transport endpoint and owned JSON
// paths, enforcing the non-overlap and liveness invariants. Implemented by
// internal/registry.
type PluginRegistry interface {
	Register(ctx context.Context, rec PluginRecord) (string, error)
	Deregister(ctx context.Context, pluginID string) error
	Lookup(pluginID string) (PluginRecord, bool)
	OwnerForPath(path string) (string, bool)
	LivePlugins() []PluginRecord
	Touch(pluginID string)
	RecordFailure(pluginID string) (evicted bool)
}

// StateStore holds the current and desired JSON trees. Implemented by
// internal/statestore.
type StateStore interface {
	Get(path string) (interface{}, bool)
	SetDesired(tree Tree)
	Desired() Tree
	MergeCurrent(path string, value interface{})
	Current() Tree
	SplitByOwners(tree Tree, registry PluginRegistry) (byPlugin map[string]Tree, unowned []string)
}

// PluginProxy invokes a single registered plugin's operations over IPC.
// Implemented by internal/pluginproxy.
type PluginProxy interface {
	Initialize(ctx context.Context, pluginID, serviceEndpoint string) error
	GetConfig(ctx context.Context) (Tree, error)
	DiffState(ctx context.Context, current, desired Tree) (bool, []StateChange, error)
	ApplyState(ctx context.Context, subtree Tree, dryRun bool) ([]StateChange, error)
	ExecuteAction(ctx context.Context, action string, parameters Tree) (string, error)
	NotifyStateChange(ctx context.Context, change StateChange) error
	Close() error
}

// PluginProxyFactory dials a new PluginProxy for a plugin's endpoint. A
// level of indirection so the Orchestrator and Facade never construct
// transport clients directly, and so tests can substitute an in-memory fake.
type PluginProxyFactory interface {
	Dial(ctx context.Context, endpoint string) (PluginProxy, error)
}

// Orchestrator fans out diff/apply/notify across owning plugins, in
// priority-class order, and tracks the current tree. Implemented by
// internal/orchestrator.
type Orchestrator interface {
	Diff(ctx context.Context, desired Tree) (DiffResult, error)
	Apply(ctx context.Context, desired Tree, dryRun bool) (ApplyResult, error)
	ExecuteAction(ctx context.Context, pluginID, action string, parameters Tree) (string, error)
	NotifyAll(ctx context.Context, change StateChange)
}

// ServiceFacade is the public RPC surface served over the facade socket.
// Implemented by internal/facade.
type ServiceFacade interface {
	GetState(ctx context.Context, path string) (interface{}, error)
	ApplyState(ctx context.Context, desired Tree, dryRun bool) (ApplyResult, error)
	RegisterPlugin(ctx context.Context, rec PluginRecord) (string, error)
	ExecuteAction(ctx context.Context, pluginID, action string, parameters Tree) (string, error)
	WatchStateChanges(ctx context.Context) (<-chan StateChange, func(), error)
}

// MetadataSource is one variant of provisioning metadata origin: Local,
// CloudInit, EC2, GCP, Azure, OpenStack, DigitalOcean, or SmartOS.
// Implemented by internal/provisioning/sources.
type MetadataSource interface {
	Kind() MetadataSourceKind
	Priority() int
	IsAvailable(ctx context.Context) bool
	Load(ctx context.Context) (NormalizedConfig, error)
}

// TaskHandler is the external per-concern executor contract a plugin
// fulfills internally. sysconfigd's core never implements a TaskHandler
// itself; the type exists so tests can exercise the contract with fakes.
type TaskHandler interface {
	Diff(ctx context.Context, current, desired Tree) ([]StateChange, error)
	Apply(ctx context.Context, desired Tree, dryRun bool) ([]StateChange, error)
	Exec(ctx context.Context, action string, parameters Tree) (string, error)
}
