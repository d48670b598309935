package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/protocol"
)

// StdioTransport reads newline or whitespace separated JSON-RPC requests and writes one response per line
type StdioTransport struct {
	dec *json.Decoder
	mu  sync.Mutex // guards writer
	w   *bufio.Writer
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NewStreamTransport creates a transport over any reader and writer
func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		dec: json.NewDecoder(bufio.NewReader(r)),
		w:   bufio.NewWriter(w),
	}
}

// ReadRequest reads the next JSON-RPC request. io.EOF means the client went away.
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	logger.Debug("Waiting for request on stdin...")

	var raw json.RawMessage
	if err := t.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			logger.Info("Received EOF on stdin, client disconnected")
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	logger.Debug("Received raw request:", string(raw))

	req, err := protocol.ParseJsonRpcRequest(raw)
	if err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidRequest, Message: err.Error()}
	}
	return req, nil
}

// WriteResponse writes a JSON-RPC response followed by a newline
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	b, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	b = append(b, '\n')

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(b); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}
	return t.w.Flush()
}
