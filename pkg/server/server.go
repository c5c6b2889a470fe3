package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/pkg/protocol"
	"github.com/tipshjalpen/resultat/pkg/results"
	"github.com/tipshjalpen/resultat/pkg/tools"
	"github.com/tipshjalpen/resultat/pkg/transport"
)

const (
	serverName = "tipshjalpen"
	version    = "1.0.0"

	defaultProtocolVersion = "2024-11-05"
)

// Server answers JSON-RPC tool requests arriving on a transport
type Server struct {
	transport transport.Transport

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	tools    []protocol.Tool
}

// HandlerFunc is a function that handles a request
type HandlerFunc func(params any) (any, error)

// NewServer creates a server with the built in methods and the given tools registered
func NewServer(t transport.Transport, registrations ...tools.Registration) *Server {
	s := &Server{
		transport: t,
		handlers:  make(map[string]HandlerFunc),
		tools:     []protocol.Tool{},
	}

	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall

	logger.Info("Registering tools...")
	for _, r := range registrations {
		s.RegisterTool(r.Tool, HandlerFunc(r.Handler))
	}
	return s
}

// NewResultsServer is NewServer with every results tool registered
func NewResultsServer(t transport.Transport, repo *results.Repository) *Server {
	return NewServer(t, tools.NewResultsTools(repo).Registrations()...)
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Tool(nil), s.tools...)
}

func (s *Server) handler(name string) HandlerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlers[name]
}

// Start processes requests until the client disconnects or the process is signalled
func (s *Server) Start() error {
	logger.Info("Starting tools server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig)
		return nil
	}
}

// ProcessRequests reads and answers requests until EOF, which is a clean exit
func (s *Server) ProcessRequests() error {
	for {
		req, err := s.transport.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var rpcErr *protocol.JsonRpcError
			if errors.As(err, &rpcErr) {
				resp := &protocol.JsonRpcResponse{JsonRPC: protocol.JsonRpcVersion, Error: rpcErr}
				if err := s.transport.WriteResponse(resp); err != nil {
					return err
				}
				continue
			}
			return err
		}

		// nil means no response is required
		resp := s.handleRequest(req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// handleRequest processes a request and returns a response
func (s *Server) handleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Full request:", req.String())

	if strings.HasPrefix(req.Method, protocol.NotificationPrefix) {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	handler := s.handler(req.Method)
	if handler == nil {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound,
			fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}

	result, err := handler(req.Params)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		logger.Warn("Request failed", req.Method, err)
		return protocol.NewJsonRpcErrorResponse(errorCode(err), err.Error(), nil, req.ID)
	}
	if result == nil {
		result = struct{}{}
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal,
			"Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	logger.Debug("Full response:", resp.String())
	return resp
}

// errorCode maps handler errors onto JSON-RPC error codes
func errorCode(err error) int {
	switch {
	case errors.Is(err, tools.ErrInvalidParams):
		return protocol.ErrInvalidParams
	case errors.Is(err, results.ErrUnknownLeague):
		return protocol.ErrUnknownLeague
	case errors.Is(err, errToolNotFound):
		return protocol.ErrMethodNotFound
	default:
		return protocol.ErrToolExecutionFailed
	}
}

var errToolNotFound = errors.New("tool not found")

// rawParams decodes the raw params member into v, treating absent params as empty
func rawParams(params any, v any) error {
	raw, ok := params.(json.RawMessage)
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", tools.ErrInvalidParams, err)
	}
	return nil
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

// handleInitialize echoes the client's protocol version and advertises tools
func (s *Server) handleInitialize(params any) (any, error) {
	var p initializeParams
	if err := rawParams(params, &p); err != nil {
		return nil, err
	}
	if p.ProtocolVersion == "" {
		p.ProtocolVersion = defaultProtocolVersion
	}
	logger.Info("Handling initialize request, protocol version", p.ProtocolVersion)

	capabilities := map[string]any{}
	if len(s.GetTools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}

	return initializeResult{
		ProtocolVersion: p.ProtocolVersion,
		Capabilities:    capabilities,
		ServerInfo:      serverInfo{Name: serverName, Version: version},
	}, nil
}

// 'initialized' does not require a response
func (s *Server) handleInitialized(params any) (any, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}

func (s *Server) handlePing(params any) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleToolsList(params any) (any, error) {
	logger.Info("Handling tools/list request")
	return protocol.ToolsResponse{Tools: s.GetTools()}, nil
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleToolsCall(params any) (any, error) {
	var p toolCallParams
	if err := rawParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: missing tool name", tools.ErrInvalidParams)
	}
	logger.Info("Tool call requested for:", p.Name)

	handler := s.toolHandler(p.Name)
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", errToolNotFound, p.Name)
	}
	if p.Arguments == nil {
		p.Arguments = map[string]any{}
	}

	result, err := handler(p.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool %s failed: %w", p.Name, err)
	}
	return result, nil
}

// toolHandler finds a registered tool, never one of the protocol methods
func (s *Server) toolHandler(name string) HandlerFunc {
	for _, t := range s.GetTools() {
		if t.Name == name {
			return s.handler(name)
		}
	}
	return nil
}
