// Package pluginproxy implements the Plugin Proxy: a thin client stub
// binding one plugin id to its transport endpoint and invoking the plugin
// contract (Initialize, GetConfig, DiffState, ApplyState, ExecuteAction,
// NotifyStateChange) as unary MCP tool calls over a dialed subprocess's
// stdio or a streamable-HTTP endpoint, using github.com/mark3labs/mcp-go.
//
// Each plugin operation is modeled as an MCP tool named after the
// operation ("diff_state", "apply_state", ...); request/response payloads
// travel as the tool's JSON arguments and the text content of its result,
// mirroring how the teacher's aggregator proxies CallTool to backend MCP
// servers.
package pluginproxy
