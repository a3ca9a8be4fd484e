package provisioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysconfigd/internal/api"
)

func TestToTree_RoundTripsFieldNames(t *testing.T) {
	cfg := api.NormalizedConfig{
		Hostname:    "web-01",
		Nameservers: []string{"1.1.1.1"},
	}

	tree, err := ToTree(cfg)
	require.NoError(t, err)
	assert.Equal(t, "web-01", tree["hostname"])
	assert.Contains(t, tree["nameservers"], "1.1.1.1")
}

func TestToTree_OmitsEmptyFields(t *testing.T) {
	tree, err := ToTree(api.NormalizedConfig{Hostname: "only-host"})
	require.NoError(t, err)
	assert.Equal(t, "only-host", tree["hostname"])
	_, hasRoutes := tree["routes"]
	assert.False(t, hasRoutes)
}
