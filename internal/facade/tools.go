package facade

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"sysconfigd/internal/api"
	"sysconfigd/pkg/logging"
)

// Tool names exposed by the Service Facade (spec §4.9/§6).
const (
	toolGetState          = "get_state"
	toolApplyState        = "apply_state"
	toolRegisterPlugin    = "register_plugin"
	toolExecuteAction     = "execute_action"
	toolWatchStateChanges = "watch_state_changes"
)

// serverTools builds the facade's MCP tool surface, grounded on the
// teacher's mcpserver.ServerTool{Tool, Handler} shape
// (internal/aggregator/submit_token.go).
func (s *Server) serverTools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		{
			Tool: mcp.Tool{
				Name:        toolGetState,
				Description: "Return the value at a dotted path in the current configuration tree.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Dotted path into the current tree, e.g. network.settings.hostname",
						},
					},
					Required: []string{"path"},
				},
			},
			Handler: s.handleGetState,
		},
		{
			Tool: mcp.Tool{
				Name:        toolApplyState,
				Description: "Apply a desired configuration tree, splitting it across owning plugins in priority-class order.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"state": map[string]interface{}{
							"type":        "object",
							"description": "Desired configuration tree",
						},
						"dry_run": map[string]interface{}{
							"type":        "boolean",
							"description": "If true, compute and return changes without mutating any plugin's state",
						},
					},
					Required: []string{"state"},
				},
			},
			Handler: s.handleApplyState,
		},
		{
			Tool: mcp.Tool{
				Name:        toolRegisterPlugin,
				Description: "Register a plugin as owner of a set of dotted configuration path prefixes.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"id":             map[string]interface{}{"type": "string", "description": "Optional plugin id; a UUID is assigned if omitted"},
						"name":           map[string]interface{}{"type": "string"},
						"description":    map[string]interface{}{"type": "string"},
						"endpoint":       map[string]interface{}{"type": "string", "description": "Transport endpoint: subprocess command line or http(s):// URL"},
						"managed_paths":  map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
						"priority_class": map[string]interface{}{"type": "integer", "description": "Apply ordering class; lower runs earlier (default 0)"},
					},
					Required: []string{"name", "endpoint", "managed_paths"},
				},
			},
			Handler: s.handleRegisterPlugin,
		},
		{
			Tool: mcp.Tool{
				Name:        toolExecuteAction,
				Description: "Invoke a single plugin's imperative action outside the diff/apply pipeline.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"plugin_id":  map[string]interface{}{"type": "string"},
						"action":     map[string]interface{}{"type": "string"},
						"parameters": map[string]interface{}{"type": "object"},
					},
					Required: []string{"plugin_id", "action"},
				},
			},
			Handler: s.handleExecuteAction,
		},
		{
			Tool: mcp.Tool{
				Name:        toolWatchStateChanges,
				Description: "Subscribe this session to committed state changes, delivered as notifications/state_changed events.",
				InputSchema: mcp.ToolInputSchema{
					Type: "object",
				},
			},
			Handler: s.handleWatchStateChanges,
		},
	}
}

func toolArgs(req mcp.CallToolRequest) (map[string]interface{}, bool) {
	args, ok := req.Params.Arguments.(map[string]interface{})
	return args, ok
}

func (s *Server) handleGetState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(req)
	if !ok {
		return mcp.NewToolResultError("invalid arguments"), nil
	}
	path, _ := args["path"].(string)
	if path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	value, err := s.facade.GetState(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]interface{}{"value": value})
}

func (s *Server) handleApplyState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(req)
	if !ok {
		return mcp.NewToolResultError("invalid arguments"), nil
	}
	state, ok := args["state"].(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("state is required and must be an object"), nil
	}
	dryRun, _ := args["dry_run"].(bool)

	result, err := s.facade.ApplyState(ctx, api.Tree(state), dryRun)
	resp := map[string]interface{}{
		"success":       err == nil,
		"changes":       result.Changes,
		"dropped_paths": result.DroppedPaths,
	}
	if result.FailedPluginID != "" {
		resp["failed_plugin_id"] = result.FailedPluginID
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	return jsonResult(resp)
}

func (s *Server) handleRegisterPlugin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(req)
	if !ok {
		return mcp.NewToolResultError("invalid arguments"), nil
	}

	rec := api.PluginRecord{
		Name:        stringArg(args, "name"),
		Description: stringArg(args, "description"),
		Endpoint:    stringArg(args, "endpoint"),
		ID:          stringArg(args, "id"),
	}
	if paths, ok := args["managed_paths"].([]interface{}); ok {
		for _, p := range paths {
			if s, ok := p.(string); ok {
				rec.ManagedPaths = append(rec.ManagedPaths, s)
			}
		}
	}
	if priority, ok := args["priority_class"].(float64); ok {
		rec.PriorityClass = int(priority)
	}
	if rec.Name == "" || rec.Endpoint == "" || len(rec.ManagedPaths) == 0 {
		return mcp.NewToolResultError("name, endpoint, and managed_paths are required"), nil
	}

	id, err := s.facade.RegisterPlugin(ctx, rec)
	if err != nil {
		return jsonResult(map[string]interface{}{"success": false, "error": err.Error()})
	}
	return jsonResult(map[string]interface{}{"success": true, "id": id})
}

func (s *Server) handleExecuteAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := toolArgs(req)
	if !ok {
		return mcp.NewToolResultError("invalid arguments"), nil
	}
	pluginID := stringArg(args, "plugin_id")
	action := stringArg(args, "action")
	if pluginID == "" || action == "" {
		return mcp.NewToolResultError("plugin_id and action are required"), nil
	}
	parameters, _ := args["parameters"].(map[string]interface{})

	result, err := s.facade.ExecuteAction(ctx, pluginID, action, api.Tree(parameters))
	if err != nil {
		return jsonResult(map[string]interface{}{"success": false, "error": err.Error()})
	}
	return jsonResult(map[string]interface{}{"success": true, "result": result})
}

// handleWatchStateChanges subscribes the calling session to the facade's
// broadcast and forwards every change as a server-to-client notification
// for the session's lifetime (bound to the server's own context rather than
// the request context, which is done as soon as this handler returns).
func (s *Server) handleWatchStateChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := sessionIDFromContext(ctx)

	changes, cancel, err := s.facade.WatchStateChanges(s.ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	go func() {
		defer cancel()
		for change := range changes {
			payload, marshalErr := json.Marshal(change)
			if marshalErr != nil {
				continue
			}
			var params map[string]interface{}
			_ = json.Unmarshal(payload, &params)
			if notifyErr := s.mcpServer.SendNotificationToSpecificClient(sessionID, "notifications/state_changed", params); notifyErr != nil {
				logging.Warn("Facade", "failed to deliver state change to session %s: %v", sessionID, notifyErr)
				return
			}
		}
	}()

	return jsonResult(map[string]interface{}{"success": true, "subscribed": true})
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}

func sessionIDFromContext(ctx context.Context) string {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}
	return "default"
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
