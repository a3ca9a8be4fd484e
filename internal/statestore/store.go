package statestore

import (
	"sync"

	"sysconfigd/internal/api"
	"sysconfigd/pkg/logging"
)

// unownedSentinel is the empty owner id. SplitByOwners does not use it: paths
// with no registered owner come back in its separate unowned slice and are
// surfaced as a warning rather than an error (spec §4.6).
const unownedSentinel = ""

// Store is the State Store: two JSON trees, current and desired, guarded
// by a single RWMutex. Get/SplitByOwners snapshot-copy their results so
// callers never observe a tree mid-write.
type Store struct {
	mu      sync.RWMutex
	current api.Tree
	desired api.Tree
}

// New creates an empty Store.
func New() *Store {
	return &Store{current: api.Tree{}, desired: api.Tree{}}
}

var _ api.StateStore = (*Store)(nil)

// Get returns the value at path in the current tree.
func (s *Store) Get(path string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := api.GetPath(s.current, path)
	return deepCopyValue(v), ok
}

// SetDesired atomically replaces the entire desired tree.
func (s *Store) SetDesired(tree api.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.desired = deepCopyTree(tree)
}

// Desired returns a snapshot copy of the desired tree.
func (s *Store) Desired() api.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return deepCopyTree(s.desired)
}

// MergeCurrent writes value at path into the current tree, creating
// intermediate objects as needed.
func (s *Store) MergeCurrent(path string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	api.SetPath(s.current, path, deepCopyValue(value))
}

// Current returns a snapshot copy of the current tree.
func (s *Store) Current() api.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return deepCopyTree(s.current)
}

// SplitByOwners walks tree and groups its top-level-and-nested leaves by
// the registry's OwnerForPath, returning one subtree per owning plugin.
// Paths with no owner are collected (not dropped silently) and returned
// separately so the caller can log a warning and exclude them from the
// apply plan (spec §4.6, error taxonomy's OwnershipError).
func (s *Store) SplitByOwners(tree api.Tree, registry api.PluginRegistry) (map[string]api.Tree, []string) {
	byPlugin := make(map[string]api.Tree)
	var unowned []string

	var walk func(prefix string, node interface{})
	walk = func(prefix string, node interface{}) {
		sub, isTree := node.(api.Tree)
		if !isTree {
			assignLeaf(byPlugin, &unowned, registry, prefix, node)
			return
		}

		if ownerID, ok := registry.OwnerForPath(prefix); ok && prefix != "" {
			// The whole subtree at prefix belongs to one plugin (it is at
			// or below the plugin's managed prefix); assign it wholesale
			// rather than recursing leaf-by-leaf.
			assignSubtree(byPlugin, ownerID, prefix, sub)
			return
		}

		for key, child := range sub {
			childPath := key
			if prefix != "" {
				childPath = prefix + "." + key
			}
			walk(childPath, child)
		}
	}

	for key, child := range tree {
		walk(key, child)
	}

	return byPlugin, unowned
}

func assignLeaf(byPlugin map[string]api.Tree, unowned *[]string, registry api.PluginRegistry, path string, value interface{}) {
	ownerID, ok := registry.OwnerForPath(path)
	if !ok {
		*unowned = append(*unowned, path)
		logging.Warn("StateStore", "no plugin owns path %q; dropped from apply plan", path)
		return
	}
	assignSubtree(byPlugin, ownerID, path, value)
}

func assignSubtree(byPlugin map[string]api.Tree, ownerID, path string, value interface{}) {
	sub, exists := byPlugin[ownerID]
	if !exists {
		sub = api.Tree{}
		byPlugin[ownerID] = sub
	}
	api.SetPath(sub, path, deepCopyValue(value))
}

func deepCopyTree(t api.Tree) api.Tree {
	if t == nil {
		return api.Tree{}
	}
	out := make(api.Tree, len(t))
	for k, v := range t {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case api.Tree:
		return deepCopyTree(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = deepCopyValue(elem)
		}
		return out
	default:
		return val
	}
}
