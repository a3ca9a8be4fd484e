package pluginproxy

import "sysconfigd/internal/api"

// Tool names exposed by a plugin, one per plugin-contract operation
// (spec §6). The Service Facade itself exposes an analogous set for its
// own public surface (see internal/facade).
const (
	toolInitialize        = "initialize"
	toolGetConfig         = "get_config"
	toolDiffState         = "diff_state"
	toolApplyState        = "apply_state"
	toolExecuteAction     = "execute_action"
	toolNotifyStateChange = "notify_state_change"
)

// kindValidation marks a response envelope as a schema/validation failure
// distinct from an ordinary plugin runtime failure (spec §4.7).
const kindValidation = "validation"

// envelope is the common response shape every plugin-contract tool call
// returns as its result's JSON text content.
type envelope struct {
	Success bool              `json:"success"`
	Kind    string            `json:"kind,omitempty"`
	Error   string            `json:"error,omitempty"`
	Path    string            `json:"path,omitempty"`
	Config  api.Tree          `json:"config,omitempty"`
	Differs bool              `json:"different,omitempty"`
	Changes []api.StateChange `json:"changes,omitempty"`
	Result  string            `json:"result,omitempty"`
}
