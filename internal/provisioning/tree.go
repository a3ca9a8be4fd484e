package provisioning

import (
	"encoding/json"
	"fmt"

	"sysconfigd/internal/api"
)

// ToTree converts a NormalizedConfig into the open-schema Tree shape the
// Service Facade and Orchestrator operate on, round-tripping through JSON
// so the struct's own json tags define the field names, the same technique
// the facade's jsonResult helper uses in the other direction.
func ToTree(cfg api.NormalizedConfig) (api.Tree, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling normalized config: %w", err)
	}
	var tree api.Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("unmarshaling normalized config into tree: %w", err)
	}
	return tree, nil
}
