package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"sysconfigd/internal/config"
)

// Tool names on the Service Facade's MCP surface (internal/facade/tools.go).
const (
	toolGetState          = "get_state"
	toolApplyState        = "apply_state"
	toolRegisterPlugin    = "register_plugin"
	toolExecuteAction     = "execute_action"
	toolWatchStateChanges = "watch_state_changes"
)

// facadeDialTimeout bounds the MCP handshake when first connecting to the
// daemon's socket.
const facadeDialTimeout = 10 * time.Second

// resolveSocketPath returns --socket if set, else config.DefaultSocketPath.
// It deliberately does not read config.yaml: the socket path a client
// dials is an operator-facing concern, not something worth a config file
// round trip for a single CLI invocation.
func resolveSocketPath() string {
	if socketFlag != "" {
		return socketFlag
	}
	return config.DefaultSocketPath()
}

// dialFacade connects to the Service Facade's Unix socket as a
// streamable-HTTP MCP client and completes the MCP handshake. mcp-go's
// streamable-HTTP transport speaks ordinary HTTP over whatever *http.Client
// it is given; pointing that client's Transport at a Unix-domain dialer,
// rather than handing it a network address, is the standard way to run an
// HTTP client over a local socket (the URL's host is a placeholder the
// custom dialer ignores).
func dialFacade(ctx context.Context, socketPath string) (client.MCPClient, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
	}

	mcpClient, err := client.NewStreamableHttpClient("http://sysconfigd.local/mcp", transport.WithHTTPBasicClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating facade client for %s: %w", socketPath, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, facadeDialTimeout)
	defer cancel()

	if _, err := mcpClient.Initialize(dialCtx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo:      mcp.Implementation{Name: "sysconfigd-cli", Version: rootCmd.Version},
			Capabilities:    mcp.ClientCapabilities{},
		},
	}); err != nil {
		_ = mcpClient.Close()
		return nil, fmt.Errorf("connecting to facade at %s: %w", socketPath, err)
	}

	return mcpClient, nil
}

// callFacadeTool invokes tool on an already-dialed facade client and decodes
// its JSON text result into out, following the same text-content-then-
// json.Unmarshal idiom as internal/pluginproxy.Proxy.call.
func callFacadeTool(ctx context.Context, mcpClient client.MCPClient, tool string, args map[string]interface{}, out interface{}) error {
	result, err := mcpClient.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: tool, Arguments: args},
	})
	if err != nil {
		return fmt.Errorf("calling %s: %w", tool, err)
	}

	text, ok := firstText(result)
	if !ok {
		return fmt.Errorf("calling %s: empty tool result", tool)
	}
	if result.IsError {
		return fmt.Errorf("%s: %s", tool, text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decoding %s result: %w", tool, err)
	}
	return nil
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
