package taskhandler

import (
	"context"
	"fmt"
	"sync"

	"sysconfigd/internal/api"
)

// Validator checks a desired subtree against a handler's schema before any
// mutation, returning a non-empty reason on rejection (spec §4.1: "handlers
// must validate the desired subtree's schema before acting").
type Validator func(desired api.Tree) (reason string, ok bool)

// MapHandler is an in-memory reference implementation of api.TaskHandler,
// holding its subtree as a plain api.Tree behind a mutex. It exists for
// tests: sysconfigd's core never runs a TaskHandler itself (every real one
// lives in an external plugin process), but the contract's invariants are
// the same regardless of where it runs.
type MapHandler struct {
	mu        sync.Mutex
	state     api.Tree
	pluginID  string
	validator Validator
}

// NewMapHandler creates a MapHandler seeded with initial state. validator
// may be nil, meaning every desired subtree is accepted.
func NewMapHandler(pluginID string, initial api.Tree, validator Validator) *MapHandler {
	if initial == nil {
		initial = api.Tree{}
	}
	return &MapHandler{pluginID: pluginID, state: initial, validator: validator}
}

var _ api.TaskHandler = (*MapHandler)(nil)

// Diff compares current against desired without mutating anything,
// returning the minimal set of changes that would equalize them.
// diffTrees(x, x) always returns an empty slice, satisfying the contract's
// determinism requirement.
func (h *MapHandler) Diff(ctx context.Context, current, desired api.Tree) ([]api.StateChange, error) {
	if err := h.validate(desired); err != nil {
		return nil, err
	}
	return diffTrees("", current, desired), nil
}

// Apply computes the changes diffTrees would for the handler's current
// state against desired, and when dryRun is false, commits them to state.
// A dryRun call never mutates state, matching diff's behavior exactly.
func (h *MapHandler) Apply(ctx context.Context, desired api.Tree, dryRun bool) ([]api.StateChange, error) {
	if err := h.validate(desired); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	changes := diffTrees("", h.state, desired)
	if !dryRun {
		h.state = deepCopyTree(desired)
	}
	return changes, nil
}

// Exec runs action against parameters. MapHandler supports exactly one
// imperative action, "echo", which returns its "message" parameter back as
// a string; any other action is a plugin runtime error.
func (h *MapHandler) Exec(ctx context.Context, action string, parameters api.Tree) (string, error) {
	if action != "echo" {
		return "", &api.PluginRuntimeError{PluginID: h.pluginID, Op: "exec", Message: fmt.Sprintf("unsupported action %q", action)}
	}
	msg, _ := parameters["message"].(string)
	return msg, nil
}

func (h *MapHandler) validate(desired api.Tree) error {
	if h.validator == nil {
		return nil
	}
	if reason, ok := h.validator(desired); !ok {
		return &api.ValidationError{PluginID: h.pluginID, Path: "", Reason: reason}
	}
	return nil
}

func deepCopyTree(t api.Tree) api.Tree {
	out := make(api.Tree, len(t))
	for k, v := range t {
		if sub, ok := v.(api.Tree); ok {
			out[k] = deepCopyTree(sub)
			continue
		}
		out[k] = v
	}
	return out
}
