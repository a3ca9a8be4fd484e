package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixOverlaps(t *testing.T) {
	cases := []struct {
		a, b    string
		overlap bool
	}{
		{"network", "network.settings", true},
		{"network.settings", "network", true},
		{"network", "network", true},
		{"network", "networking", false},
		{"network.settings", "network.interfaces", false},
		{"files", "files", true},
	}

	for _, c := range cases {
		assert.Equalf(t, c.overlap, PrefixOverlaps(c.a, c.b), "PrefixOverlaps(%q, %q)", c.a, c.b)
	}
}

func TestGetSetPath(t *testing.T) {
	tree := Tree{}
	SetPath(tree, "network.settings.hostname", "h1")

	got, ok := GetPath(tree, "network.settings.hostname")
	require.True(t, ok)
	assert.Equal(t, "h1", got)

	_, ok = GetPath(tree, "network.settings.missing")
	assert.False(t, ok)

	_, ok = GetPath(tree, "network.settings.hostname.nope")
	assert.False(t, ok, "walking through a scalar must fail, not panic")
}

func TestLongestOwnedPrefix(t *testing.T) {
	candidates := []string{"network", "network.settings.dns"}

	owner, ok := LongestOwnedPrefix("network.settings.dns.nameservers", candidates)
	require.True(t, ok)
	assert.Equal(t, "network.settings.dns", owner)

	owner, ok = LongestOwnedPrefix("network.interfaces.eth0", candidates)
	require.True(t, ok)
	assert.Equal(t, "network", owner)

	_, ok = LongestOwnedPrefix("files", candidates)
	assert.False(t, ok)
}
