package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysconfigd/internal/api"
	"sysconfigd/internal/registry"
	"sysconfigd/internal/statestore"
)

// fakeProxy is a scriptable in-memory stand-in for a dialed plugin,
// mirroring how the teacher's tests substitute a fake MCPClient rather
// than dialing a real subprocess.
type fakeProxy struct {
	mu sync.Mutex

	diffChanges []api.StateChange
	diffErr     error
	applyChanges []api.StateChange
	applyErr    error

	applyCalls      int
	lastApplySubtree api.Tree
	lastDryRun      bool
	notified        []api.StateChange
}

func (f *fakeProxy) Initialize(ctx context.Context, pluginID, serviceEndpoint string) error { return nil }
func (f *fakeProxy) GetConfig(ctx context.Context) (api.Tree, error)                        { return api.Tree{}, nil }

func (f *fakeProxy) DiffState(ctx context.Context, current, desired api.Tree) (bool, []api.StateChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.diffChanges) > 0, f.diffChanges, f.diffErr
}

func (f *fakeProxy) ApplyState(ctx context.Context, subtree api.Tree, dryRun bool) ([]api.StateChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	f.lastApplySubtree = subtree
	f.lastDryRun = dryRun
	return f.applyChanges, f.applyErr
}

func (f *fakeProxy) ExecuteAction(ctx context.Context, action string, parameters api.Tree) (string, error) {
	return "", nil
}

func (f *fakeProxy) NotifyStateChange(ctx context.Context, change api.StateChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, change)
	return nil
}

func (f *fakeProxy) Close() error { return nil }

func (f *fakeProxy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applyCalls
}

// fakeFactory dials a fixed set of fakeProxy instances keyed by endpoint
// (the registry record's Endpoint field).
type fakeFactory struct {
	mu      sync.Mutex
	proxies map[string]*fakeProxy
}

func newFakeFactory() *fakeFactory { return &fakeFactory{proxies: make(map[string]*fakeProxy)} }

func (f *fakeFactory) add(endpoint string, p *fakeProxy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proxies[endpoint] = p
}

func (f *fakeFactory) Dial(ctx context.Context, endpoint string) (api.PluginProxy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.proxies[endpoint]
	if !ok {
		return nil, &api.TransportError{Op: "Dial", Cause: errNotRegistered}
	}
	return p, nil
}

func TestApply_ScenarioA_SinglePluginExactSubtree(t *testing.T) {
	reg := registry.New()
	store := statestore.New()
	factory := newFakeFactory()

	pluginID, err := reg.Register(context.Background(), api.PluginRecord{
		Name:         "network",
		Endpoint:     "fake://network",
		ManagedPaths: []string{"network.settings"},
	})
	require.NoError(t, err)

	proxy := &fakeProxy{applyChanges: []api.StateChange{
		{Kind: api.ChangeUpdate, Path: "network.settings.hostname", NewValue: "h1"},
		{Kind: api.ChangeUpdate, Path: "network.settings.dns", NewValue: api.Tree{"nameservers": []interface{}{"9.9.9.9"}}},
	}}
	factory.add("fake://network", proxy)

	orch := New(reg, store, factory, DefaultTimeouts())
	desired := api.Tree{"network": api.Tree{"settings": api.Tree{
		"hostname": "h1",
		"dns":      api.Tree{"nameservers": []interface{}{"9.9.9.9"}},
	}}}

	result, err := orch.Apply(context.Background(), desired, false)
	require.NoError(t, err)
	assert.Len(t, result.Changes, 2)

	got, ok := api.GetPath(proxy.lastApplySubtree, "network.settings.hostname")
	require.True(t, ok)
	assert.Equal(t, "h1", got)

	v, ok := store.Get("network.settings.hostname")
	require.True(t, ok)
	assert.Equal(t, "h1", v)
	_ = pluginID
}

func TestApply_ScenarioE_FailureContainment(t *testing.T) {
	reg := registry.New()
	store := statestore.New()
	factory := newFakeFactory()

	_, err := reg.Register(context.Background(), api.PluginRecord{
		Name: "storage", Endpoint: "fake://storage", ManagedPaths: []string{"storage"}, PriorityClass: 1,
	})
	require.NoError(t, err)
	_, err = reg.Register(context.Background(), api.PluginRecord{
		Name: "files", Endpoint: "fake://files", ManagedPaths: []string{"files"}, PriorityClass: 2,
	})
	require.NoError(t, err)
	_, err = reg.Register(context.Background(), api.PluginRecord{
		Name: "services", Endpoint: "fake://services", ManagedPaths: []string{"services"}, PriorityClass: 3,
	})
	require.NoError(t, err)

	storageProxy := &fakeProxy{applyChanges: []api.StateChange{{Kind: api.ChangeCreate, Path: "storage.disk0", NewValue: "mounted"}}}
	filesProxy := &fakeProxy{applyErr: &api.PluginRuntimeError{Op: "ApplyState", Message: "disk full"}}
	servicesProxy := &fakeProxy{applyChanges: []api.StateChange{{Kind: api.ChangeCreate, Path: "services.nginx", NewValue: "running"}}}

	factory.add("fake://storage", storageProxy)
	factory.add("fake://files", filesProxy)
	factory.add("fake://services", servicesProxy)

	orch := New(reg, store, factory, DefaultTimeouts())
	desired := api.Tree{
		"storage":  api.Tree{"disk0": "mounted"},
		"files":    api.Tree{"x": "y"},
		"services": api.Tree{"nginx": "running"},
	}

	result, err := orch.Apply(context.Background(), desired, false)
	require.Error(t, err)

	assert.Equal(t, 0, servicesProxy.callCount(), "priority 3 must never be invoked once priority 2 fails")
	assert.Equal(t, 1, storageProxy.callCount())
	assert.Equal(t, 1, filesProxy.callCount())

	require.Len(t, result.Changes, 1)
	assert.Equal(t, "storage.disk0", result.Changes[0].Path)

	v, ok := store.Get("services.nginx")
	assert.False(t, ok, "GetState(\"services\") must be unchanged")
	_ = v

	v, ok = store.Get("storage.disk0")
	require.True(t, ok)
	assert.Equal(t, "mounted", v)
}

func TestApply_DryRun_DoesNotMutateStore(t *testing.T) {
	reg := registry.New()
	store := statestore.New()
	factory := newFakeFactory()

	_, err := reg.Register(context.Background(), api.PluginRecord{Name: "files", Endpoint: "fake://files", ManagedPaths: []string{"files"}})
	require.NoError(t, err)

	proxy := &fakeProxy{applyChanges: []api.StateChange{{Kind: api.ChangeCreate, Path: "files./etc/x", NewValue: "y"}}}
	factory.add("fake://files", proxy)

	orch := New(reg, store, factory, DefaultTimeouts())
	desired := api.Tree{"files": api.Tree{"/etc/x": "y"}}

	result, err := orch.Apply(context.Background(), desired, true)
	require.NoError(t, err)
	assert.Len(t, result.Changes, 1)
	assert.True(t, proxy.lastDryRun)

	_, ok := store.Get("files./etc/x")
	assert.False(t, ok, "dry-run apply must not merge changes into current")
}

func TestApply_SerializesConcurrentCalls(t *testing.T) {
	reg := registry.New()
	store := statestore.New()
	factory := newFakeFactory()

	_, err := reg.Register(context.Background(), api.PluginRecord{Name: "x", Endpoint: "fake://x", ManagedPaths: []string{"x"}})
	require.NoError(t, err)
	factory.add("fake://x", &fakeProxy{})

	orch := New(reg, store, factory, DefaultTimeouts())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = orch.Apply(context.Background(), api.Tree{"x": api.Tree{"a": 1}}, false)
		}()
	}
	wg.Wait()
	// No assertion beyond "did not deadlock or race"; applyMu makes this safe.
}
