package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/richard-senior/valuebet/pkg/protocol"
	"github.com/richard-senior/valuebet/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, input string, setup func(*Server)) []protocol.JsonRpcResponse {
	t.Helper()
	var out bytes.Buffer
	s := New(transport.NewStreamTransport(strings.NewReader(input), &out), "valuebet", "test")
	if setup != nil {
		setup(s)
	}
	require.NoError(t, s.ProcessRequests(context.Background()))

	var responses []protocol.JsonRpcResponse
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r protocol.JsonRpcResponse
		require.NoError(t, dec.Decode(&r))
		responses = append(responses, r)
	}
	return responses
}

func echoTool(s *Server) {
	s.RegisterTool(protocol.Tool{Name: "echo", Description: "echoes its input"}, func(_ context.Context, params any) (any, error) {
		args := params.(map[string]any)
		if args["fail"] == true {
			return nil, errors.New("asked to fail")
		}
		return map[string]any{"said": args["text"]}, nil
	})
}

func TestInitializeAndListTools(t *testing.T) {
	in := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2025-03-26"},"id":0}
{"jsonrpc":"2.0","method":"notifications/initialized"}
{"jsonrpc":"2.0","method":"tools/list","params":{},"id":1}`
	resps := run(t, in, echoTool)
	require.Len(t, resps, 2)

	var init struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      struct {
			Name string `json:"name"`
		} `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &init))
	assert.Equal(t, "2025-03-26", init.ProtocolVersion)
	assert.Equal(t, "valuebet", init.ServerInfo.Name)
	assert.Contains(t, init.Capabilities, "tools")

	var list protocol.ToolsResponse
	require.NoError(t, json.Unmarshal(resps[1].Result, &list))
	require.Len(t, list.Tools, 1)
	assert.Equal(t, "echo", list.Tools[0].Name)
}

func TestToolsCall(t *testing.T) {
	in := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}},"id":1}
{"jsonrpc":"2.0","method":"tools/call","params":{"name":"mcp___echo","arguments":{"text":"again"}},"id":2}
{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"fail":true}},"id":3}
{"jsonrpc":"2.0","method":"tools/call","params":{"name":"missing"},"id":4}`
	resps := run(t, in, echoTool)
	require.Len(t, resps, 4)

	var ok protocol.ToolResult
	require.NoError(t, json.Unmarshal(resps[0].Result, &ok))
	assert.False(t, ok.IsError)
	require.Len(t, ok.Content, 1)
	assert.Contains(t, ok.Content[0].Text, `"said": "hi"`)

	var prefixed protocol.ToolResult
	require.NoError(t, json.Unmarshal(resps[1].Result, &prefixed))
	assert.Contains(t, prefixed.Content[0].Text, "again")

	var failed protocol.ToolResult
	require.NoError(t, json.Unmarshal(resps[2].Result, &failed))
	assert.True(t, failed.IsError)
	assert.Equal(t, "asked to fail", failed.Content[0].Text)

	require.NotNil(t, resps[3].Error)
	assert.Equal(t, protocol.ErrMethodNotFound, resps[3].Error.Code)
	assert.EqualValues(t, 4, resps[3].ID)
}

func TestUnknownMethodAndBadRequest(t *testing.T) {
	in := `{"jsonrpc":"2.0","method":"resources/list","id":1}
{"jsonrpc":"1.0","method":"ping","id":2}
{"jsonrpc":"2.0","method":"ping","id":3}`
	resps := run(t, in, nil)
	require.Len(t, resps, 3)

	require.NotNil(t, resps[0].Error)
	assert.Equal(t, protocol.ErrMethodNotFound, resps[0].Error.Code)

	require.NotNil(t, resps[1].Error)
	assert.Equal(t, protocol.ErrInvalidRequest, resps[1].Error.Code)

	assert.Nil(t, resps[2].Error)
	assert.JSONEq(t, `{}`, string(resps[2].Result))
}

func TestShutdownStopsProcessing(t *testing.T) {
	in := `{"jsonrpc":"2.0","method":"shutdown","id":1}
{"jsonrpc":"2.0","method":"ping","id":2}`
	resps := run(t, in, nil)
	require.Len(t, resps, 1)
	assert.EqualValues(t, 1, resps[0].ID)
}

func TestToolResultPassesStringsThrough(t *testing.T) {
	r, err := toolResult("# Report")
	require.NoError(t, err)
	assert.Equal(t, "# Report", r.Content[0].Text)
	assert.Nil(t, r.Structured)
}
