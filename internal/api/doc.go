// Package api defines the shared contracts and wire-shaped types used
// across sysconfigd: the plugin registry, the state store, the plugin
// proxy, the orchestrator, and the service facade all depend on this
// package rather than on each other, mirroring the teacher's service-locator
// pattern (internal/api in giantswarm-muster) so the concrete
// implementations can be swapped or mocked independently in tests.
package api
