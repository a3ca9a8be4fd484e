package pluginproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"sysconfigd/internal/api"
)

// toolCaller is the slice of the mcp-go client surface Proxy actually
// needs. Accepting this narrower interface (rather than the full
// mcp-go client.MCPClient) keeps Proxy testable with a small in-package
// fake, the way the teacher's own tests substitute a fake MCPClient.
type toolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Proxy is the Plugin Proxy: a cached client stub bound to one plugin's
// transport endpoint, driving the plugin contract as MCP tool calls.
type Proxy struct {
	mu       sync.RWMutex
	client   toolCaller
	endpoint string
	pluginID string
	closed   bool
}

var _ api.PluginProxy = (*Proxy)(nil)

// Initialize performs the plugin-contract Initialize call (not the MCP
// transport handshake, already done by Factory.Dial), telling the plugin
// its assigned id and the facade's own callback endpoint.
func (p *Proxy) Initialize(ctx context.Context, pluginID, serviceEndpoint string) error {
	p.mu.Lock()
	p.pluginID = pluginID
	p.mu.Unlock()

	var resp envelope
	if err := p.call(ctx, toolInitialize, map[string]interface{}{
		"plugin_id":        pluginID,
		"service_endpoint": serviceEndpoint,
	}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return p.runtimeErr(toolInitialize, resp)
	}
	return nil
}

// GetConfig returns the plugin-declared configuration (name, OS, supported
// tasks).
func (p *Proxy) GetConfig(ctx context.Context) (api.Tree, error) {
	var resp envelope
	if err := p.call(ctx, toolGetConfig, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, p.runtimeErr(toolGetConfig, resp)
	}
	return resp.Config, nil
}

// DiffState asks the plugin to compare current and desired subtrees.
func (p *Proxy) DiffState(ctx context.Context, current, desired api.Tree) (bool, []api.StateChange, error) {
	var resp envelope
	if err := p.call(ctx, toolDiffState, map[string]interface{}{
		"current": current,
		"desired": desired,
	}, &resp); err != nil {
		return false, nil, err
	}
	if resp.Kind == kindValidation {
		return false, nil, &api.ValidationError{PluginID: p.id(), Path: resp.Path, Reason: resp.Error}
	}
	if !resp.Success {
		return false, nil, p.runtimeErr(toolDiffState, resp)
	}
	return resp.Differs, resp.Changes, nil
}

// ApplyState asks the plugin to apply (or dry-run) a subtree.
func (p *Proxy) ApplyState(ctx context.Context, subtree api.Tree, dryRun bool) ([]api.StateChange, error) {
	var resp envelope
	if err := p.call(ctx, toolApplyState, map[string]interface{}{
		"subtree": subtree,
		"dry_run": dryRun,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Kind == kindValidation {
		return nil, &api.ValidationError{PluginID: p.id(), Path: resp.Path, Reason: resp.Error}
	}
	if !resp.Success {
		return resp.Changes, p.runtimeErr(toolApplyState, resp)
	}
	return resp.Changes, nil
}

// ExecuteAction invokes the plugin's imperative escape hatch.
func (p *Proxy) ExecuteAction(ctx context.Context, action string, parameters api.Tree) (string, error) {
	var resp envelope
	if err := p.call(ctx, toolExecuteAction, map[string]interface{}{
		"action":     action,
		"parameters": parameters,
	}, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", p.runtimeErr(toolExecuteAction, resp)
	}
	return resp.Result, nil
}

// NotifyStateChange fans a single committed change out to the plugin.
// Errors here are logged by the caller, never fatal (spec §4.8 step 6).
func (p *Proxy) NotifyStateChange(ctx context.Context, change api.StateChange) error {
	var resp envelope
	if err := p.call(ctx, toolNotifyStateChange, map[string]interface{}{
		"change": change,
	}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return p.runtimeErr(toolNotifyStateChange, resp)
	}
	return nil
}

// Close shuts down the underlying transport connection.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}

func (p *Proxy) id() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pluginID
}

// call invokes the named plugin-contract tool and decodes its JSON text
// result into out. A transport-level failure (dial lost, context
// cancelled, no text content) is wrapped as *api.TransportError.
func (p *Proxy) call(ctx context.Context, tool string, args map[string]interface{}, out *envelope) error {
	p.mu.RLock()
	cl := p.client
	closed := p.closed
	pluginID := p.pluginID
	p.mu.RUnlock()

	if closed || cl == nil {
		return &api.TransportError{PluginID: pluginID, Op: tool, Cause: fmt.Errorf("proxy closed")}
	}

	result, err := cl.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      tool,
			Arguments: args,
		},
	})
	if err != nil {
		return &api.TransportError{PluginID: pluginID, Op: tool, Cause: err}
	}

	text, ok := firstText(result)
	if !ok {
		return &api.TransportError{PluginID: pluginID, Op: tool, Cause: fmt.Errorf("empty tool result")}
	}

	if result.IsError {
		var partial envelope
		_ = json.Unmarshal([]byte(text), &partial)
		if partial.Error == "" {
			partial.Error = text
		}
		*out = partial
		out.Success = false
		return nil
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &api.TransportError{PluginID: pluginID, Op: tool, Cause: fmt.Errorf("decoding result: %w", err)}
	}
	return nil
}

func (p *Proxy) runtimeErr(op string, resp envelope) error {
	return &api.PluginRuntimeError{PluginID: p.id(), Op: op, Message: resp.Error}
}

func firstText(result *mcp.CallToolResult) (string, bool) {
	if result == nil {
		return "", false
	}
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return text.Text, true
		}
	}
	return "", false
}
