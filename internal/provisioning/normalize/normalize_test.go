package normalize

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_HostnamePrecedence(t *testing.T) {
	cfg, err := Normalize(map[string]interface{}{
		"meta_data": map[string]interface{}{"local-hostname": "from-meta-data"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-meta-data", cfg.Hostname)

	cfg, err = Normalize(map[string]interface{}{
		"hostname":  "explicit",
		"meta_data": map[string]interface{}{"local-hostname": "from-meta-data"},
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Hostname)
}

func TestNormalize_UserDataBase64Decodes(t *testing.T) {
	plain := "#!/bin/sh\necho hi\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(plain))

	cfg, err := Normalize(map[string]interface{}{"user_data_base64": encoded})
	require.NoError(t, err)
	assert.Equal(t, encoded, cfg.UserDataBase64)
	assert.Equal(t, plain, cfg.UserData)
}

func TestNormalize_NetworkConfigV1ExpandsPhysicalAndVLAN(t *testing.T) {
	raw := map[string]interface{}{
		"network_config": map[string]interface{}{
			"config": []interface{}{
				map[string]interface{}{
					"type": "physical",
					"name": "eth0",
					"mac_address": "aa:bb:cc:dd:ee:ff",
					"subnets": []interface{}{
						map[string]interface{}{"type": "static", "address": "192.168.1.10/24", "gateway": "192.168.1.1"},
					},
				},
				map[string]interface{}{
					"type":      "vlan",
					"name":      "eth0.100",
					"vlan_id":   float64(100),
					"vlan_link": "eth0",
				},
				map[string]interface{}{
					"type":    "route",
					"destination": "0.0.0.0/0",
					"gateway": "192.168.1.1",
				},
			},
		},
	}

	cfg, err := Normalize(raw)
	require.NoError(t, err)

	require.Contains(t, cfg.Interfaces, "eth0")
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", cfg.Interfaces["eth0"].MAC)
	require.Len(t, cfg.Interfaces["eth0"].Addresses, 1)
	assert.Equal(t, "static", cfg.Interfaces["eth0"].Addresses[0].Kind)

	require.Contains(t, cfg.Interfaces, "eth0.100")
	require.NotNil(t, cfg.Interfaces["eth0.100"].VLANID)
	assert.Equal(t, 100, *cfg.Interfaces["eth0.100"].VLANID)
	assert.Equal(t, "eth0", cfg.Interfaces["eth0.100"].Parent)

	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "0.0.0.0/0", cfg.Routes[0].Destination)
}

func TestNormalize_UnrecognizedKeysPreservedAsMetadata(t *testing.T) {
	cfg, err := Normalize(map[string]interface{}{"vendor_extra": "something"})
	require.NoError(t, err)
	assert.Equal(t, "something", cfg.Metadata["vendor_extra"])
}
