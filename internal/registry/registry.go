package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"sysconfigd/internal/api"
	"sysconfigd/internal/events"
	"sysconfigd/pkg/logging"
)

// MaxConsecutiveFailures is the number of consecutive transport failures
// a plugin may accrue before the registry evicts it (spec §4.7).
const MaxConsecutiveFailures = 3

// Registry is the Plugin Registry: a thread-safe mapping of plugin id to
// plugin record, enforcing the path non-overlap invariant on registration.
type Registry struct {
	mu       sync.RWMutex
	plugins  map[string]*api.PluginRecord
	recorder *events.Recorder
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{plugins: make(map[string]*api.PluginRecord), recorder: events.NewRecorder("Registry")}
}

var _ api.PluginRegistry = (*Registry)(nil)

// Register adds rec to the registry, assigning a UUID if rec.ID is empty.
// Registration fails if any of rec.ManagedPaths prefix-overlaps a path
// already managed by a live plugin (testable property 1); the rejection
// names the conflicting plugin.
func (r *Registry) Register(ctx context.Context, rec api.PluginRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if _, exists := r.plugins[rec.ID]; exists {
		return "", fmt.Errorf("plugin id %s already registered", rec.ID)
	}

	for existingID, existing := range r.plugins {
		for _, newPath := range rec.ManagedPaths {
			for _, existingPath := range existing.ManagedPaths {
				if api.PrefixOverlaps(newPath, existingPath) {
					err := &api.OwnershipError{Path: newPath, ConflictingID: existingID}
					logging.Warn("Registry", "rejected registration of %s: %v", rec.Name, err)
					r.recorder.Record(events.ReasonPluginRegistrationRejected, events.Fields{PluginID: rec.Name, Target: newPath, Details: err.Error()})
					return "", err
				}
			}
		}
	}

	rec.LastHeartbeat = time.Now()
	rec.FailureCount = 0
	r.plugins[rec.ID] = &rec

	logging.Info("Registry", "registered plugin %s (%s) owning %v", rec.ID, rec.Name, rec.ManagedPaths)
	logging.Audit(logging.AuditEvent{
		Action:   "register_plugin",
		Outcome:  "success",
		PluginID: rec.ID,
		Target:   fmt.Sprint(rec.ManagedPaths),
	})
	r.recorder.Record(events.ReasonPluginRegistered, events.Fields{PluginID: rec.ID, Details: rec.Name})
	return rec.ID, nil
}

// Deregister removes pluginID from the registry. Idempotent: deregistering
// an unknown id is not an error.
func (r *Registry) Deregister(ctx context.Context, pluginID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[pluginID]; !exists {
		return nil
	}
	delete(r.plugins, pluginID)
	logging.Info("Registry", "deregistered plugin %s", pluginID)
	r.recorder.Record(events.ReasonPluginDeregistered, events.Fields{PluginID: pluginID})
	return nil
}

// Lookup returns the record for pluginID, if live.
func (r *Registry) Lookup(pluginID string) (api.PluginRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.plugins[pluginID]
	if !exists {
		return api.PluginRecord{}, false
	}
	return *rec, true
}

// OwnerForPath returns the plugin id whose managed-path list contains the
// longest prefix of path.
func (r *Registry) OwnerForPath(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bestID := ""
	bestLen := -1
	for id, rec := range r.plugins {
		owned, ok := api.LongestOwnedPrefix(path, rec.ManagedPaths)
		if !ok {
			continue
		}
		segLen := len(api.SplitPath(owned))
		if segLen > bestLen {
			bestID = id
			bestLen = segLen
		}
	}
	if bestLen < 0 {
		return "", false
	}
	return bestID, true
}

// LivePlugins returns a snapshot of every currently registered plugin,
// in no particular order; callers requiring deterministic ordering (e.g.
// the Orchestrator's apply pipeline) sort by PriorityClass themselves.
func (r *Registry) LivePlugins() []api.PluginRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]api.PluginRecord, 0, len(r.plugins))
	for _, rec := range r.plugins {
		out = append(out, *rec)
	}
	return out
}

// Touch refreshes a plugin's liveness timestamp and clears its failure
// count after a successful round trip.
func (r *Registry) Touch(pluginID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, exists := r.plugins[pluginID]; exists {
		rec.LastHeartbeat = time.Now()
		rec.FailureCount = 0
	}
}

// RecordFailure increments a plugin's consecutive-failure count and, once
// it reaches MaxConsecutiveFailures, evicts the plugin from the registry
// (spec §4.7 transport-error handling). Returns whether eviction occurred.
func (r *Registry) RecordFailure(pluginID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.plugins[pluginID]
	if !exists {
		return false
	}
	rec.FailureCount++
	r.recorder.Record(events.ReasonPluginHeartbeatMissed, events.Fields{PluginID: pluginID, Details: fmt.Sprintf("failure %d/%d", rec.FailureCount, MaxConsecutiveFailures)})
	if rec.FailureCount >= MaxConsecutiveFailures {
		delete(r.plugins, pluginID)
		logging.Warn("Registry", "evicting plugin %s after %d consecutive transport failures", pluginID, rec.FailureCount)
		r.recorder.Record(events.ReasonPluginEvicted, events.Fields{PluginID: pluginID, Details: fmt.Sprintf("%d consecutive failures", rec.FailureCount)})
		return true
	}
	return false
}
