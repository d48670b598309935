package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/protocol"
	"github.com/richard-senior/valuebet/pkg/transport"
)

const (
	defaultProtocolVersion = "2024-11-05"
	// some clients namespace tool names with this prefix
	toolPrefix = "mcp___"
)

// HandlerFunc handles one request. A nil result with a nil error means no response is sent.
// Returning a *protocol.JsonRpcError sets the response error code.
type HandlerFunc func(ctx context.Context, params any) (any, error)

// Server answers JSON-RPC requests read from a transport
type Server struct {
	transport transport.Transport
	name      string
	version   string

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	tools    []protocol.Tool
	closing  bool
}

// New creates a server with the built-in methods registered. Tools are added with RegisterTool.
func New(t transport.Transport, name, version string) *Server {
	s := &Server{
		transport: t,
		name:      name,
		version:   version,
		handlers:  make(map[string]HandlerFunc),
	}
	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodShutdown)] = s.handleShutdown
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// Tools returns the registered tools
func (s *Server) Tools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Start processes requests until the input ends, a shutdown request arrives, ctx is done or the process is signalled
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting tool server", s.name, s.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessRequests reads and answers requests until the input ends or a shutdown request has been answered.
// Malformed requests are answered with an error and do not stop the loop.
func (s *Server) ProcessRequests(ctx context.Context) error {
	for {
		req, err := s.transport.ReadRequest()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			if werr := s.transport.WriteResponse(protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, nil)); werr != nil {
				return werr
			}
			continue
		}
		if err != nil {
			return err
		}

		resp := s.handleRequest(ctx, req)
		if resp != nil {
			if err := s.transport.WriteResponse(resp); err != nil {
				return err
			}
		}

		s.mu.RLock()
		closing := s.closing
		s.mu.RUnlock()
		if closing {
			logger.Info("Shutdown requested")
			return nil
		}
	}
}

// handleRequest processes a request and returns a response, or nil when none is due
func (s *Server) handleRequest(ctx context.Context, req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Full request:", string(req.Params))

	if strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	s.mu.RLock()
	handler := s.handlers[req.Method]
	s.mu.RUnlock()

	if handler == nil {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}

	result, err := handler(ctx, req.Params)
	if req.IsNotification() || (err == nil && result == nil) {
		return nil
	}
	if err != nil {
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			return protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, req.ID)
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrToolExecutionFailed, err.Error(), nil, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, "Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	return resp
}

func (s *Server) handleToolsList(_ context.Context, _ any) (any, error) {
	logger.Info("Handling tools/list request")
	return protocol.ToolsResponse{Tools: s.Tools()}, nil
}

func (s *Server) handleInitialize(_ context.Context, params any) (any, error) {
	version := defaultProtocolVersion
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if raw, ok := params.(json.RawMessage); ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err == nil && p.ProtocolVersion != "" {
			version = p.ProtocolVersion
		}
	}
	logger.Info("Handling initialize request with", len(s.Tools()), "tools, protocol", version)

	capabilities := map[string]any{}
	if len(s.Tools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}

	type serverInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	return struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      serverInfo     `json:"serverInfo"`
	}{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo:      serverInfo{Name: s.name, Version: s.version},
	}, nil
}

// 'initialized' does not require a response
func (s *Server) handleInitialized(_ context.Context, _ any) (any, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}

func (s *Server) handlePing(_ context.Context, _ any) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleShutdown(_ context.Context, _ any) (any, error) {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	return struct{}{}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params any) (any, error) {
	var call struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	raw, _ := params.(json.RawMessage)
	if err := json.Unmarshal(raw, &call); err != nil || call.Name == "" {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters"}
	}
	logger.Info("Tool call requested for:", call.Name)

	s.mu.RLock()
	handler := s.handlers[call.Name]
	if handler == nil && strings.HasPrefix(call.Name, toolPrefix) {
		handler = s.handlers[strings.TrimPrefix(call.Name, toolPrefix)]
	}
	s.mu.RUnlock()
	if handler == nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrMethodNotFound, Message: "tool not found: " + call.Name}
	}

	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	result, err := handler(ctx, call.Arguments)
	if err != nil {
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			return nil, err
		}
		logger.Warn("Tool failed", call.Name, err)
		return protocol.ToolResult{
			Content: []protocol.ToolContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}
	return toolResult(result)
}

// toolResult wraps a handler result as text content, keeping structured values for clients that read them
func toolResult(result any) (protocol.ToolResult, error) {
	switch r := result.(type) {
	case protocol.ToolResult:
		return r, nil
	case string:
		return protocol.ToolResult{Content: []protocol.ToolContent{{Type: "text", Text: r}}}, nil
	}
	b, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		return protocol.ToolResult{}, &protocol.JsonRpcError{Code: protocol.ErrInternal, Message: "Failed to marshal result: " + err.Error()}
	}
	return protocol.ToolResult{
		Content:    []protocol.ToolContent{{Type: "text", Text: string(b)}},
		Structured: result,
	}, nil
}
