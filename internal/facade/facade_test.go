package facade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysconfigd/internal/api"
)

type fakeOrchestrator struct {
	applyResult api.ApplyResult
	applyErr    error
	actionResult string
	actionErr    error
	lastAction   string
}

func (f *fakeOrchestrator) Diff(ctx context.Context, desired api.Tree) (api.DiffResult, error) {
	return api.DiffResult{}, nil
}

func (f *fakeOrchestrator) Apply(ctx context.Context, desired api.Tree, dryRun bool) (api.ApplyResult, error) {
	return f.applyResult, f.applyErr
}

func (f *fakeOrchestrator) ExecuteAction(ctx context.Context, pluginID, action string, parameters api.Tree) (string, error) {
	f.lastAction = action
	return f.actionResult, f.actionErr
}

func (f *fakeOrchestrator) NotifyAll(ctx context.Context, change api.StateChange) {}

type fakeRegistry struct {
	registered api.PluginRecord
	registerID string
	registerErr error
}

func (f *fakeRegistry) Register(ctx context.Context, rec api.PluginRecord) (string, error) {
	f.registered = rec
	return f.registerID, f.registerErr
}
func (f *fakeRegistry) Deregister(ctx context.Context, pluginID string) error { return nil }
func (f *fakeRegistry) Lookup(pluginID string) (api.PluginRecord, bool)      { return api.PluginRecord{}, false }
func (f *fakeRegistry) OwnerForPath(path string) (string, bool)             { return "", false }
func (f *fakeRegistry) LivePlugins() []api.PluginRecord                     { return nil }
func (f *fakeRegistry) Touch(pluginID string)                               {}
func (f *fakeRegistry) RecordFailure(pluginID string) bool                  { return false }

type fakeStore struct {
	values map[string]interface{}
}

func (f *fakeStore) Get(path string) (interface{}, bool) {
	v, ok := f.values[path]
	return v, ok
}
func (f *fakeStore) SetDesired(tree api.Tree)            {}
func (f *fakeStore) Desired() api.Tree                   { return nil }
func (f *fakeStore) MergeCurrent(path string, value interface{}) {}
func (f *fakeStore) Current() api.Tree                   { return nil }
func (f *fakeStore) SplitByOwners(tree api.Tree, registry api.PluginRegistry) (map[string]api.Tree, []string) {
	return nil, nil
}

func TestFacade_GetState(t *testing.T) {
	store := &fakeStore{values: map[string]interface{}{"network.settings.hostname": "web-01"}}
	f := New(&fakeOrchestrator{}, &fakeRegistry{}, store)

	v, err := f.GetState(context.Background(), "network.settings.hostname")
	require.NoError(t, err)
	assert.Equal(t, "web-01", v)

	_, err = f.GetState(context.Background(), "missing.path")
	assert.Error(t, err)
}

func TestFacade_ApplyState_BroadcastsToSubscribers(t *testing.T) {
	orch := &fakeOrchestrator{applyResult: api.ApplyResult{
		Changes: []api.StateChange{{Kind: api.ChangeUpdate, Path: "network.settings.hostname", NewValue: "web-02"}},
	}}
	f := New(orch, &fakeRegistry{}, &fakeStore{values: map[string]interface{}{}})

	ch, cancel, err := f.WatchStateChanges(context.Background())
	require.NoError(t, err)
	defer cancel()

	_, err = f.ApplyState(context.Background(), api.Tree{"network": api.Tree{"settings": api.Tree{"hostname": "web-02"}}}, false)
	require.NoError(t, err)

	select {
	case change := <-ch:
		assert.Equal(t, "network.settings.hostname", change.Path)
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast change")
	}
}

func TestFacade_ApplyState_DryRunDoesNotBroadcast(t *testing.T) {
	orch := &fakeOrchestrator{applyResult: api.ApplyResult{
		Changes: []api.StateChange{{Kind: api.ChangeUpdate, Path: "network.settings.hostname", NewValue: "web-02"}},
	}}
	f := New(orch, &fakeRegistry{}, &fakeStore{values: map[string]interface{}{}})

	ch, cancel, err := f.WatchStateChanges(context.Background())
	require.NoError(t, err)
	defer cancel()

	_, err = f.ApplyState(context.Background(), api.Tree{}, true)
	require.NoError(t, err)

	select {
	case <-ch:
		t.Fatal("dry run must not broadcast")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFacade_RegisterPlugin_DelegatesToRegistry(t *testing.T) {
	reg := &fakeRegistry{registerID: "plugin-123"}
	f := New(&fakeOrchestrator{}, reg, &fakeStore{})

	id, err := f.RegisterPlugin(context.Background(), api.PluginRecord{Name: "network-plugin", Endpoint: "stdio:///bin/network-plugin"})
	require.NoError(t, err)
	assert.Equal(t, "plugin-123", id)
	assert.Equal(t, "network-plugin", reg.registered.Name)
}

func TestFacade_ExecuteAction_DelegatesToOrchestrator(t *testing.T) {
	orch := &fakeOrchestrator{actionResult: "ok"}
	f := New(orch, &fakeRegistry{}, &fakeStore{})

	result, err := f.ExecuteAction(context.Background(), "plugin-123", "restart_service", api.Tree{"service": "nginx"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, "restart_service", orch.lastAction)
}

func TestFacade_WatchStateChanges_CancelClosesChannel(t *testing.T) {
	f := New(&fakeOrchestrator{}, &fakeRegistry{}, &fakeStore{})

	ch, cancel, err := f.WatchStateChanges(context.Background())
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected channel to close after cancel")
	}
}

func TestFacade_Broadcast_DisconnectsSlowSubscriber(t *testing.T) {
	orch := &fakeOrchestrator{}
	f := New(orch, &fakeRegistry{}, &fakeStore{})

	ch, _, err := f.WatchStateChanges(context.Background())
	require.NoError(t, err)

	change := api.StateChange{Kind: api.ChangeUpdate, Path: "x", NewValue: 1}
	// Fill the subscriber's buffer, then push past BackpressureThreshold
	// without draining ch, forcing eviction.
	burst := make([]api.StateChange, SubscriberBufferSize+BackpressureThreshold+1)
	for i := range burst {
		burst[i] = change
	}
	f.broadcast(burst)

	f.subMu.Lock()
	_, stillSubscribed := f.subscribers[1]
	f.subMu.Unlock()
	assert.False(t, stillSubscribed, "slow subscriber should have been disconnected")

	select {
	case _, ok := <-ch:
		_ = ok
	default:
	}
}
