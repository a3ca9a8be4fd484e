package pluginproxy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysconfigd/internal/api"
)

// fakeCaller is an in-memory stand-in for the mcp-go transport, returning a
// canned envelope per tool name. It mirrors how the teacher's own tests
// substitute a fake MCPClient rather than dialing a real subprocess.
type fakeCaller struct {
	responses map[string]envelope
	errs      map[string]error
	lastArgs  map[string]interface{}
	closed    bool
}

func (f *fakeCaller) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastArgs = req.Params.Arguments.(map[string]interface{})
	if err, ok := f.errs[req.Params.Name]; ok {
		return nil, err
	}
	resp, ok := f.responses[req.Params.Name]
	if !ok {
		resp = envelope{Success: false, Error: "no canned response"}
	}
	body, _ := json.Marshal(resp)
	return &mcp.CallToolResult{
		IsError: !resp.Success,
		Content: []mcp.Content{mcp.NewTextContent(string(body))},
	}, nil
}

func (f *fakeCaller) Close() error {
	f.closed = true
	return nil
}

func TestProxy_DiffState_Success(t *testing.T) {
	fc := &fakeCaller{responses: map[string]envelope{
		toolDiffState: {
			Success: true,
			Differs: true,
			Changes: []api.StateChange{{Kind: api.ChangeUpdate, Path: "network.settings.hostname"}},
		},
	}}
	p := &Proxy{client: fc}

	differs, changes, err := p.DiffState(context.Background(), api.Tree{}, api.Tree{"hostname": "h1"})
	require.NoError(t, err)
	assert.True(t, differs)
	require.Len(t, changes, 1)
	assert.Equal(t, "network.settings.hostname", changes[0].Path)
}

func TestProxy_DiffState_ValidationError(t *testing.T) {
	fc := &fakeCaller{responses: map[string]envelope{
		toolDiffState: {Success: false, Kind: kindValidation, Path: "network.settings.hostname", Error: "not a string"},
	}}
	p := &Proxy{client: fc, pluginID: "p1"}

	_, _, err := p.DiffState(context.Background(), api.Tree{}, api.Tree{})
	require.Error(t, err)

	var valErr *api.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "p1", valErr.PluginID)
}

func TestProxy_ApplyState_RuntimeError(t *testing.T) {
	fc := &fakeCaller{responses: map[string]envelope{
		toolApplyState: {Success: false, Error: "disk full"},
	}}
	p := &Proxy{client: fc, pluginID: "p1"}

	_, err := p.ApplyState(context.Background(), api.Tree{}, false)
	require.Error(t, err)

	var rtErr *api.PluginRuntimeError
	require.ErrorAs(t, err, &rtErr)
	assert.Equal(t, "disk full", rtErr.Message)
}

func TestProxy_TransportErrorOnCallFailure(t *testing.T) {
	fc := &fakeCaller{errs: map[string]error{toolGetConfig: assertErr("dial closed")}}
	p := &Proxy{client: fc, pluginID: "p1"}

	_, err := p.GetConfig(context.Background())
	require.Error(t, err)

	var transErr *api.TransportError
	require.ErrorAs(t, err, &transErr)
}

func TestProxy_CloseIsIdempotent(t *testing.T) {
	fc := &fakeCaller{}
	p := &Proxy{client: fc}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestProxy_ClosedProxyRejectsCalls(t *testing.T) {
	fc := &fakeCaller{}
	p := &Proxy{client: fc, pluginID: "p1"}
	require.NoError(t, p.Close())

	_, err := p.GetConfig(context.Background())
	require.Error(t, err)
	var transErr *api.TransportError
	require.ErrorAs(t, err, &transErr)
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }
