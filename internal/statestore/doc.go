// Package statestore holds the orchestrator's two in-memory JSON trees,
// current and desired, behind a single reader-writer lock (spec §5: readers
// never block each other; the store guards every suspension-bearing write).
// The desired tree is replaced wholesale on each ApplyState call; the
// current tree is mutated only by the Orchestrator after a successful
// per-plugin apply.
package statestore
