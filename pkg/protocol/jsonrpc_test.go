package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJsonRpcRequest(t *testing.T) {
	req, err := ParseJsonRpcRequest([]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"predict_match"},"id":"a1"}`))
	require.NoError(t, err)
	assert.Equal(t, string(MethodToolsCall), req.Method)
	assert.Equal(t, "a1", req.ID)
	assert.False(t, req.IsNotification())

	_, err = ParseJsonRpcRequest([]byte(`{"jsonrpc":"1.0","method":"x"}`))
	assert.Error(t, err)
	_, err = ParseJsonRpcRequest([]byte(`{"jsonrpc":"2.0"}`))
	assert.Error(t, err)
	_, err = ParseJsonRpcRequest([]byte(`{`))
	assert.Error(t, err)
}

func TestErrorResponseOmitsResult(t *testing.T) {
	resp := NewJsonRpcErrorResponse(ErrMethodNotFound, "Method not found: x", nil, 4)
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found: x"},"id":4}`, string(b))
	assert.Contains(t, resp.Error.Error(), "code=-32601")
}

func TestNewRequestRoundTrip(t *testing.T) {
	req, err := NewJsonRpcRequest(string(MethodPing), map[string]int{"a": 1}, nil)
	require.NoError(t, err)
	assert.True(t, req.IsNotification())

	b, err := json.Marshal(req)
	require.NoError(t, err)
	back, err := ParseJsonRpcRequest(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(back.Params))
}
