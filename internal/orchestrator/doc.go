// Package orchestrator implements the two pipelines at the heart of
// sysconfigd: Diff (read-only, fans a desired tree out to its owning
// plugins' DiffState) and Apply (mutating, applies a desired tree to
// registered plugins in deterministic priority-class order, parallel
// within a class, serialized across the whole pipeline). It also fans out
// NotifyStateChange to every live plugin after an apply completes.
package orchestrator
