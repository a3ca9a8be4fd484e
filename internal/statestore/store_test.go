package statestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysconfigd/internal/api"
	"sysconfigd/internal/registry"
)

func TestSetDesired_GetRoundTrip(t *testing.T) {
	s := New()
	s.SetDesired(api.Tree{"network": api.Tree{"settings": api.Tree{"hostname": "h1"}}})

	got, ok := api.GetPath(s.Desired(), "network.settings.hostname")
	require.True(t, ok)
	assert.Equal(t, "h1", got)
}

func TestSetDesired_ReplacesWholesale(t *testing.T) {
	s := New()
	s.SetDesired(api.Tree{"a": 1})
	s.SetDesired(api.Tree{"b": 2})

	_, ok := api.GetPath(s.Desired(), "a")
	assert.False(t, ok, "SetDesired must replace, not merge")

	desired := s.Desired()
	assert.Equal(t, api.Tree{"b": 2}, desired)
}

func TestMergeCurrent_CreatesIntermediateObjects(t *testing.T) {
	s := New()
	s.MergeCurrent("network.settings.hostname", "h1")

	got, ok := s.Get("network.settings.hostname")
	require.True(t, ok)
	assert.Equal(t, "h1", got)
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	s := New()
	s.SetDesired(api.Tree{"network": api.Tree{"settings": api.Tree{"hostname": "h1"}}})

	snap := s.Desired()
	snap["network"].(api.Tree)["settings"].(api.Tree)["hostname"] = "mutated"

	got, _ := s.Get("network.settings.hostname")
	assert.Nil(t, got, "mutating a snapshot must not affect current; hostname only exists in desired anyway")

	s.MergeCurrent("network.settings.hostname", "h1")
	snap2 := s.Current()
	snap2["network"].(api.Tree)["settings"].(api.Tree)["hostname"] = "mutated"
	got2, _ := s.Get("network.settings.hostname")
	assert.Equal(t, "h1", got2, "mutating a Current() snapshot must not affect the store")
}

func TestSplitByOwners_ScenarioA(t *testing.T) {
	// Scenario A: plugin owning ["network.settings"] receives exactly that
	// subtree, reconstructed with its original root-relative nesting.
	reg := registry.New()
	pluginID, err := reg.Register(context.Background(), api.PluginRecord{
		Name:         "network",
		ManagedPaths: []string{"network.settings"},
	})
	require.NoError(t, err)

	tree := api.Tree{
		"network": api.Tree{
			"settings": api.Tree{
				"hostname": "h1",
				"dns":      api.Tree{"nameservers": []interface{}{"9.9.9.9"}},
			},
		},
	}

	s := New()
	byPlugin, unowned := s.SplitByOwners(tree, reg)

	assert.Empty(t, unowned)
	require.Contains(t, byPlugin, pluginID)

	got, ok := api.GetPath(byPlugin[pluginID], "network.settings.hostname")
	require.True(t, ok)
	assert.Equal(t, "h1", got)
}

func TestSplitByOwners_UnownedPathsSurfaced(t *testing.T) {
	reg := registry.New()
	_, err := reg.Register(context.Background(), api.PluginRecord{Name: "net", ManagedPaths: []string{"network"}})
	require.NoError(t, err)

	tree := api.Tree{
		"network": api.Tree{"settings": api.Tree{"hostname": "h1"}},
		"users":   []interface{}{"alice"},
	}

	s := New()
	_, unowned := s.SplitByOwners(tree, reg)

	require.Len(t, unowned, 1)
	assert.Equal(t, "users", unowned[0])
}
