package pluginproxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"sysconfigd/internal/api"
	"sysconfigd/pkg/logging"
)

// DefaultDialTimeout bounds the subprocess-start-plus-handshake time for a
// newly dialed plugin, mirroring the teacher's DefaultStdioInitTimeout.
const DefaultDialTimeout = 10 * time.Second

// Factory dials plugin endpoints, choosing a transport by endpoint shape:
// an "http://" or "https://" endpoint is dialed as streamable-HTTP (a
// plugin already running and listening); anything else is treated as a
// subprocess command line the service spawns and speaks stdio to, matching
// the plugin-as-subprocess pattern (spec §9).
type Factory struct{}

// NewFactory returns the default Factory.
func NewFactory() *Factory { return &Factory{} }

var _ api.PluginProxyFactory = (*Factory)(nil)

// Dial establishes the MCP transport handshake for endpoint and returns a
// ready-to-use Proxy. It does not perform the plugin contract's own
// Initialize call, and the Orchestrator's proxy cache, which is its caller,
// does not issue one either.
func (f *Factory) Dial(ctx context.Context, endpoint string) (api.PluginProxy, error) {
	var mcpClient client.MCPClient
	var err error

	switch {
	case strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://"):
		mcpClient, err = client.NewStreamableHttpClient(endpoint)
	default:
		fields := strings.Fields(endpoint)
		if len(fields) == 0 {
			return nil, fmt.Errorf("empty plugin endpoint")
		}
		mcpClient, err = client.NewStdioMCPClient(fields[0], nil, fields[1:]...)
	}
	if err != nil {
		return nil, &api.TransportError{Op: "Dial", Cause: err}
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	_, err = mcpClient.Initialize(dialCtx, mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "sysconfigd",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	})
	if err != nil {
		_ = mcpClient.Close()
		return nil, &api.TransportError{Op: "Dial", Cause: err}
	}

	logging.Debug("PluginProxy", "dialed plugin endpoint %s", endpoint)
	return &Proxy{client: mcpClient, endpoint: endpoint}, nil
}
