package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"sysconfigd/internal/api"
	"sysconfigd/internal/events"
	"sysconfigd/pkg/logging"
)

// Orchestrator fans diff/apply/notify operations out across owning
// plugins. ApplyState calls are serialized by applyMu (spec §5); GetState
// and DiffState may run concurrently with each other and with an active
// apply, since both read snapshot copies from the Store.
type Orchestrator struct {
	registry api.PluginRegistry
	store    api.StateStore
	factory  api.PluginProxyFactory
	timeouts Timeouts

	applyMu sync.Mutex

	proxyMu sync.Mutex
	proxies map[string]api.PluginProxy

	recorder *events.Recorder
}

// New constructs an Orchestrator over registry and store, dialing plugin
// proxies lazily through factory as they are needed.
func New(registry api.PluginRegistry, store api.StateStore, factory api.PluginProxyFactory, timeouts Timeouts) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		store:    store,
		factory:  factory,
		timeouts: timeouts,
		proxies:  make(map[string]api.PluginProxy),
		recorder: events.NewRecorder("Orchestrator"),
	}
}

var _ api.Orchestrator = (*Orchestrator)(nil)

// proxyFor returns the cached proxy for pluginID, dialing one if absent.
func (o *Orchestrator) proxyFor(ctx context.Context, pluginID string) (api.PluginProxy, error) {
	o.proxyMu.Lock()
	defer o.proxyMu.Unlock()

	if p, ok := o.proxies[pluginID]; ok {
		return p, nil
	}

	rec, ok := o.registry.Lookup(pluginID)
	if !ok {
		return nil, &api.TransportError{PluginID: pluginID, Op: "Dial", Cause: errNotRegistered}
	}

	p, err := o.factory.Dial(ctx, rec.Endpoint)
	if err != nil {
		return nil, err
	}
	o.proxies[pluginID] = p
	return p, nil
}

// dropProxy evicts a cached proxy, e.g. after the registry evicts the
// plugin for repeated transport failures.
func (o *Orchestrator) dropProxy(pluginID string) {
	o.proxyMu.Lock()
	defer o.proxyMu.Unlock()
	delete(o.proxies, pluginID)
}

// Diff implements the read-only diff pipeline (spec §4.8): split desired
// by owner, call each owning plugin's DiffState in parallel, and collect
// per-plugin results. A failing plugin's changes are absent from the
// result but other plugins' reports are preserved (partial success is
// allowed for diff).
func (o *Orchestrator) Diff(ctx context.Context, desired api.Tree) (api.DiffResult, error) {
	byPlugin, unowned := o.store.SplitByOwners(desired, o.registry)
	for _, path := range unowned {
		logging.Warn("Orchestrator", "no plugin owns path %q; excluded from diff", path)
	}

	result := api.DiffResult{
		ByPlugin: make(map[string][]api.StateChange),
		Errors:   make(map[string]error),
	}
	var mu sync.Mutex

	eg, egCtx := errgroup.WithContext(ctx)
	for pluginID, subtree := range byPlugin {
		pluginID, subtree := pluginID, subtree
		eg.Go(func() error {
			changes, err := o.diffOne(egCtx, pluginID, subtree)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[pluginID] = err
				return nil
			}
			result.ByPlugin[pluginID] = changes
			return nil
		})
	}
	_ = eg.Wait()

	o.recorder.Record(events.ReasonDiffCompleted, events.Fields{Details: fmt.Sprintf("%d plugins, %d errors", len(result.ByPlugin), len(result.Errors))})
	return result, nil
}

func (o *Orchestrator) diffOne(ctx context.Context, pluginID string, desiredSubtree api.Tree) ([]api.StateChange, error) {
	proxy, err := o.proxyFor(ctx, pluginID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeouts.Diff)
	defer cancel()

	currentSubtree := o.subtreeAt(o.store.Current(), pluginID)
	_, changes, err := proxy.DiffState(callCtx, currentSubtree, desiredSubtree)
	if err != nil {
		o.handleProxyErr(pluginID, err)
		return nil, err
	}
	o.registry.Touch(pluginID)
	return changes, nil
}

// Apply implements the mutating apply pipeline (spec §4.8): validate,
// split by owner, apply in deterministic priority-class order (parallel
// within a class), stop at the first failing plugin (not dry-run),
// merge committed changes into current, then notify all plugins.
func (o *Orchestrator) Apply(ctx context.Context, desired api.Tree, dryRun bool) (api.ApplyResult, error) {
	o.applyMu.Lock()
	defer o.applyMu.Unlock()

	o.recorder.Record(events.ReasonApplyStarted, events.Fields{Details: fmt.Sprintf("dry_run=%v", dryRun)})

	o.store.SetDesired(desired)
	byPlugin, unowned := o.store.SplitByOwners(desired, o.registry)

	// Step 1: validate every owner's subtree before mutating anything.
	for pluginID, subtree := range byPlugin {
		proxy, err := o.proxyFor(ctx, pluginID)
		if err != nil {
			return api.ApplyResult{Err: err, FailedPluginID: pluginID}, err
		}
		callCtx, cancel := context.WithTimeout(ctx, o.timeouts.Diff)
		_, _, err = proxy.DiffState(callCtx, o.subtreeAt(o.store.Current(), pluginID), subtree)
		cancel()
		var valErr *api.ValidationError
		if err != nil && isValidationErr(err, &valErr) {
			return api.ApplyResult{Err: valErr, FailedPluginID: pluginID}, valErr
		}
	}

	classes := o.classesFor(byPlugin)

	result := api.ApplyResult{DroppedPaths: unowned}
	if !dryRun && len(unowned) > 0 {
		for _, p := range unowned {
			logging.Warn("Orchestrator", "no plugin owns path %q; dropped from apply plan", p)
		}
	}

	for _, class := range classes {
		var mu sync.Mutex
		var classErr error
		var classFailedID string

		eg, egCtx := errgroup.WithContext(ctx)
		for _, pluginID := range class.pluginIDs {
			pluginID := pluginID
			subtree := byPlugin[pluginID]
			eg.Go(func() error {
				callCtx, cancel := context.WithTimeout(egCtx, o.timeouts.Apply)
				defer cancel()

				proxy, err := o.proxyFor(callCtx, pluginID)
				if err != nil {
					mu.Lock()
					if classErr == nil {
						classErr, classFailedID = err, pluginID
					}
					mu.Unlock()
					return nil
				}

				changes, err := proxy.ApplyState(callCtx, subtree, dryRun)
				mu.Lock()
				result.Changes = append(result.Changes, changes...)
				mu.Unlock()

				if err != nil {
					o.handleProxyErr(pluginID, err)
					mu.Lock()
					if classErr == nil {
						classErr, classFailedID = err, pluginID
					}
					mu.Unlock()
					return nil
				}
				o.registry.Touch(pluginID)

				if !dryRun {
					for _, ch := range changes {
						o.store.MergeCurrent(ch.Path, ch.NewValue)
					}
				}
				return nil
			})
		}
		_ = eg.Wait()

		if classErr != nil {
			result.Err = classErr
			result.FailedPluginID = classFailedID
			o.recorder.Record(events.ReasonApplyFailed, events.Fields{PluginID: classFailedID, Details: classErr.Error()})
			o.notifyAll(ctx, result.Changes, dryRun)
			return result, classErr
		}
	}

	o.recorder.Record(events.ReasonApplyCompleted, events.Fields{Details: fmt.Sprintf("%d changes", len(result.Changes))})
	o.notifyAll(ctx, result.Changes, dryRun)
	return result, nil
}

// ExecuteAction delegates a single plugin's imperative escape hatch through
// its proxy (spec §4.9), outside the diff/apply pipelines.
func (o *Orchestrator) ExecuteAction(ctx context.Context, pluginID, action string, parameters api.Tree) (string, error) {
	proxy, err := o.proxyFor(ctx, pluginID)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeouts.Action)
	defer cancel()

	result, err := proxy.ExecuteAction(callCtx, action, parameters)
	if err != nil {
		o.handleProxyErr(pluginID, err)
		o.recorder.Record(events.ReasonActionFailed, events.Fields{PluginID: pluginID, Target: action, Details: err.Error()})
		return "", err
	}
	o.registry.Touch(pluginID)
	o.recorder.Record(events.ReasonActionExecuted, events.Fields{PluginID: pluginID, Target: action})
	return result, nil
}

// NotifyAll fans a single change out to every live plugin, independent of
// an apply pipeline run (e.g. an externally-sourced change).
func (o *Orchestrator) NotifyAll(ctx context.Context, change api.StateChange) {
	o.notifyAll(ctx, []api.StateChange{change}, false)
}

func (o *Orchestrator) notifyAll(ctx context.Context, changes []api.StateChange, dryRun bool) {
	if dryRun || len(changes) == 0 {
		return
	}
	for _, rec := range o.registry.LivePlugins() {
		rec := rec
		go func() {
			proxy, err := o.proxyFor(ctx, rec.ID)
			if err != nil {
				logging.Warn("Orchestrator", "notify: plugin %s unreachable: %v", rec.ID, err)
				return
			}
			for _, change := range changes {
				callCtx, cancel := context.WithTimeout(ctx, o.timeouts.Action)
				err := proxy.NotifyStateChange(callCtx, change)
				cancel()
				if err != nil {
					logging.Warn("Orchestrator", "notify: plugin %s rejected change at %s: %v", rec.ID, change.Path, err)
				}
			}
		}()
	}
}

func (o *Orchestrator) handleProxyErr(pluginID string, err error) {
	var transErr *api.TransportError
	if isTransportErr(err, &transErr) {
		if o.registry.RecordFailure(pluginID) {
			o.dropProxy(pluginID)
		}
	}
}

// priorityClass groups plugin ids sharing one priority, in ascending
// order of that priority (spec §4.8: lower runs earlier).
type priorityClass struct {
	priority  int
	pluginIDs []string
}

func (o *Orchestrator) classesFor(byPlugin map[string]api.Tree) []priorityClass {
	byPriority := make(map[int][]string)
	for pluginID := range byPlugin {
		rec, ok := o.registry.Lookup(pluginID)
		priority := 0
		if ok {
			priority = rec.PriorityClass
		}
		byPriority[priority] = append(byPriority[priority], pluginID)
	}

	classes := make([]priorityClass, 0, len(byPriority))
	for priority, ids := range byPriority {
		sort.Strings(ids)
		classes = append(classes, priorityClass{priority: priority, pluginIDs: ids})
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].priority < classes[j].priority })
	return classes
}

// subtreeAt returns the portion of tree this plugin owns, in the same
// shape Store.SplitByOwners would produce, so a plugin's DiffState always
// compares like-shaped current/desired subtrees.
func (o *Orchestrator) subtreeAt(tree api.Tree, pluginID string) api.Tree {
	byPlugin, _ := o.store.SplitByOwners(tree, o.registry)
	if sub, ok := byPlugin[pluginID]; ok {
		return sub
	}
	return api.Tree{}
}
