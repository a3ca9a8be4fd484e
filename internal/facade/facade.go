package facade

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"sysconfigd/internal/api"
	"sysconfigd/internal/events"
	"sysconfigd/pkg/logging"
)

// SubscriberBufferSize bounds each WatchStateChanges subscriber's channel.
const SubscriberBufferSize = 64

// BackpressureThreshold is the number of consecutive dropped sends before a
// slow subscriber is disconnected (spec §9: "slow subscribers are
// disconnected ... rather than blocking the orchestrator").
const BackpressureThreshold = 3

// Facade implements the Service Facade's business logic (spec §4.9),
// independent of the MCP transport wiring in server.go/tools.go.
type Facade struct {
	orchestrator api.Orchestrator
	registry     api.PluginRegistry
	store        api.StateStore

	subMu       sync.Mutex
	subscribers map[uint64]*subscriber
	nextSubID   uint64

	recorder *events.Recorder
}

type subscriber struct {
	ch      chan api.StateChange
	missed  int
}

// New constructs a Facade over an already-wired orchestrator/registry/store.
func New(orchestrator api.Orchestrator, registry api.PluginRegistry, store api.StateStore) *Facade {
	return &Facade{
		orchestrator: orchestrator,
		registry:     registry,
		store:        store,
		subscribers:  make(map[uint64]*subscriber),
		recorder:     events.NewRecorder("Facade"),
	}
}

var _ api.ServiceFacade = (*Facade)(nil)

// GetState returns the value at path in the current tree.
func (f *Facade) GetState(ctx context.Context, path string) (interface{}, error) {
	value, ok := f.store.Get(path)
	if !ok {
		return nil, fmt.Errorf("no value at path %q", path)
	}
	return value, nil
}

// ApplyState runs the orchestrator's apply pipeline and broadcasts every
// committed change to WatchStateChanges subscribers, even on partial
// failure (spec §4.8 step 4: earlier plugins' changes are retained).
func (f *Facade) ApplyState(ctx context.Context, desired api.Tree, dryRun bool) (api.ApplyResult, error) {
	result, err := f.orchestrator.Apply(ctx, desired, dryRun)
	if !dryRun && len(result.Changes) > 0 {
		f.broadcast(result.Changes)
	}
	return result, err
}

// RegisterPlugin adds a plugin to the registry (spec §4.9's RegisterPlugin).
func (f *Facade) RegisterPlugin(ctx context.Context, rec api.PluginRecord) (string, error) {
	return f.registry.Register(ctx, rec)
}

// ExecuteAction delegates to the orchestrator's plugin proxy for pluginID.
func (f *Facade) ExecuteAction(ctx context.Context, pluginID, action string, parameters api.Tree) (string, error) {
	return f.orchestrator.ExecuteAction(ctx, pluginID, action, parameters)
}

// WatchStateChanges registers a bounded-channel subscriber that receives
// every change broadcast by a subsequent ApplyState call. The returned
// cancel func unsubscribes and closes the channel; callers must call it
// exactly once. The channel is also closed, and the subscriber removed,
// if ctx is cancelled or the subscriber falls behind past
// BackpressureThreshold.
func (f *Facade) WatchStateChanges(ctx context.Context) (<-chan api.StateChange, func(), error) {
	id := atomic.AddUint64(&f.nextSubID, 1)
	sub := &subscriber{ch: make(chan api.StateChange, SubscriberBufferSize)}

	f.subMu.Lock()
	f.subscribers[id] = sub
	f.subMu.Unlock()
	f.recorder.Record(events.ReasonSubscriberConnected, events.Fields{Target: fmt.Sprint(id)})

	var once sync.Once
	cancel := func() {
		once.Do(func() { f.removeSubscriber(id) })
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return sub.ch, cancel, nil
}

func (f *Facade) removeSubscriber(id uint64) {
	f.subMu.Lock()
	sub, ok := f.subscribers[id]
	if ok {
		delete(f.subscribers, id)
	}
	f.subMu.Unlock()
	if ok {
		close(sub.ch)
		f.recorder.Record(events.ReasonSubscriberDisconnected, events.Fields{Target: fmt.Sprint(id)})
	}
}

// broadcast fans changes out to every subscriber in commit order (spec §5:
// "change-event broadcasts are ordered per subscriber in the order changes
// are committed"), dropping (never blocking) on a full channel and
// disconnecting subscribers that stay behind past BackpressureThreshold.
func (f *Facade) broadcast(changes []api.StateChange) {
	f.subMu.Lock()
	ids := make([]uint64, 0, len(f.subscribers))
	for id := range f.subscribers {
		ids = append(ids, id)
	}
	f.subMu.Unlock()

	for _, id := range ids {
		f.subMu.Lock()
		sub, ok := f.subscribers[id]
		f.subMu.Unlock()
		if !ok {
			continue
		}

	changesLoop:
		for _, change := range changes {
			select {
			case sub.ch <- change:
				sub.missed = 0
			default:
				sub.missed++
				logging.Warn("Facade", "subscriber %d missed a state change (backpressure)", id)
				f.recorder.Record(events.ReasonSubscriberBackpressure, events.Fields{Target: fmt.Sprint(id), Details: fmt.Sprintf("missed=%d", sub.missed)})
				if sub.missed >= BackpressureThreshold {
					logging.Warn("Facade", "disconnecting subscriber %d after %d missed changes", id, sub.missed)
					f.removeSubscriber(id)
					break changesLoop
				}
			}
		}
	}
}
