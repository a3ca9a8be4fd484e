package sources

import (
	"context"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

// CloudInit reads the three cloud-init seed files (spec §4.2): meta-data,
// user-data, and network-config, from configured paths.
type CloudInit struct {
	MetaDataPath     string
	UserDataPath     string
	NetworkConfigPath string
	PriorityHint     int
}

var _ api.MetadataSource = (*CloudInit)(nil)

func (c *CloudInit) Kind() api.MetadataSourceKind { return api.SourceCloudInit }
func (c *CloudInit) Priority() int                { return c.PriorityHint }

// IsAvailable reports true if at least the meta-data file is present; the
// other two are optional (spec §4.2 names no availability gate on them).
func (c *CloudInit) IsAvailable(ctx context.Context) bool {
	_, err := os.Stat(c.MetaDataPath)
	return err == nil
}

func (c *CloudInit) Load(ctx context.Context) (api.NormalizedConfig, error) {
	raw := make(map[string]interface{})

	if metaData, ok := readYAMLFile(c.MetaDataPath); ok {
		raw["meta_data"] = metaData
	}
	if netConfig, ok := readYAMLFile(c.NetworkConfigPath); ok {
		raw["network_config"] = netConfig
	}

	if userDataRaw, err := os.ReadFile(c.UserDataPath); err == nil {
		applyCloudInitUserData(string(userDataRaw), raw)
	}

	return normalize.Normalize(raw)
}

// applyCloudInitUserData implements spec §4.2's user-data dispatch: a
// "#cloud-config" prefix is YAML, a "#!" shebang is wrapped into a
// runcmd list, anything else is parsed as JSON or YAML.
func applyCloudInitUserData(content string, raw map[string]interface{}) {
	trimmed := strings.TrimSpace(content)

	switch {
	case strings.HasPrefix(trimmed, "#cloud-config"):
		var parsed map[string]interface{}
		if err := yaml.Unmarshal([]byte(content), &parsed); err == nil {
			for k, v := range parsed {
				raw[k] = v
			}
		}
		raw["user_data"] = content

	case strings.HasPrefix(trimmed, "#!"):
		raw["runcmd"] = []interface{}{content}
		raw["user_data"] = content

	default:
		var parsed map[string]interface{}
		if err := yaml.Unmarshal([]byte(content), &parsed); err == nil {
			for k, v := range parsed {
				raw[k] = v
			}
		}
		raw["user_data"] = content
	}
}

func readYAMLFile(path string) (map[string]interface{}, bool) {
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
