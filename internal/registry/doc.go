// Package registry implements the Plugin Registry: a thread-safe mapping
// from plugin identity to transport endpoint and owned JSON paths. It
// enforces the path-ownership non-overlap invariant at registration time
// and tracks plugin liveness via heartbeat timestamps and consecutive
// failure counts.
package registry
