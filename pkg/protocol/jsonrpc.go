package protocol

import (
	"encoding/json"
	"fmt"
)

/**
Flow of a session over stdio:
	client sends 'initialize': {"method":"initialize","params":{"protocolVersion":"2024-11-05"},"jsonrpc":"2.0","id":0}
	we answer with what we are: {"jsonrpc":"2.0","id":0,"result":{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"tipshjalpen","version":"1.0.0"}}}
	client acknowledges with a notification, which gets no answer: {"method":"notifications/initialized","jsonrpc":"2.0"}
	client asks for the tools: {"method":"tools/list","params":{},"jsonrpc":"2.0","id":1}
	and then calls them: {"method":"tools/call","params":{"name":"team_results","arguments":{"team":"Arsenal"}},"jsonrpc":"2.0","id":2}
*/

// MethodType defines the possible JSON-RPC method types
type MethodType string

const (
	MethodInitialize  MethodType = "initialize"
	MethodInitialized MethodType = "initialized"
	MethodToolsList   MethodType = "tools/list"
	MethodToolsCall   MethodType = "tools/call"
	MethodPing        MethodType = "ping"
	MethodShutdown    MethodType = "shutdown"
)

// NotificationPrefix marks methods that never get a response
const NotificationPrefix = "notifications/"

// Version is the JSON-RPC protocol version
const JsonRpcVersion = "2.0"

// JsonRpcRequest represents a JSON-RPC 2.0 request object
type JsonRpcRequest struct {
	// MUST be exactly "2.0".
	JsonRPC string `json:"jsonrpc"`

	Method string `json:"method"`

	// This member MAY be omitted.
	Params json.RawMessage `json:"params,omitempty"`

	// A String, Number, or NULL value if included.
	// If it is not included it is assumed to be a notification.
	ID any `json:"id,omitempty"`
}

// IsNotification reports whether the request expects no response
func (r *JsonRpcRequest) IsNotification() bool {
	return r.ID == nil
}

// JsonRpcResponse represents a JSON-RPC 2.0 response object
type JsonRpcResponse struct {
	JsonRPC string `json:"jsonrpc"`

	// This member MUST NOT exist if there was an error invoking the method.
	Result json.RawMessage `json:"result,omitempty"`

	// This member MUST NOT exist if there was no error triggered during invocation.
	Error *JsonRpcError `json:"error,omitempty"`

	// It MUST be the same as the value of the id member in the Request Object.
	// If there was an error in detecting the id (e.g. Parse error/Invalid Request), it MUST be Null.
	ID any `json:"id"`
}

// JsonRpcError represents a JSON-RPC 2.0 error object
type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
}

type InputSchema struct {
	Type                 string                  `json:"type"`
	Properties           map[string]ToolProperty `json:"properties,omitempty"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// Tool describes something a client may invoke through tools/call
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ToolsResponse is the result of tools/list
type ToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// Standard error codes defined by the JSON-RPC 2.0 specification
const (
	// Invalid JSON was received by the server.
	ErrParse = -32700

	// The JSON sent is not a valid Request object.
	ErrInvalidRequest = -32600

	ErrMethodNotFound = -32601

	ErrInvalidParams = -32602

	ErrInternal = -32603

	// Tool execution failed. Implementation defined, in the -32000 to -32099 range.
	ErrToolExecutionFailed = -32000

	// The league key given to a tool is not configured
	ErrUnknownLeague = -32001
)

// Error returns a string representation of the error
func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// NewJsonRpcRequest creates a new JSON-RPC 2.0 request
func NewJsonRpcRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, err
		}
	}

	return &JsonRpcRequest{
		JsonRPC: JsonRpcVersion,
		Method:  method,
		Params:  paramsJSON,
		ID:      id,
	}, nil
}

// NewJsonRpcResponse creates a new JSON-RPC 2.0 success response
func NewJsonRpcResponse(result any, id any) (*JsonRpcResponse, error) {
	var resultJSON json.RawMessage
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return nil, err
		}
	}

	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Result:  resultJSON,
		ID:      id,
	}, nil
}

// NewJsonRpcErrorResponse creates a new JSON-RPC 2.0 error response
func NewJsonRpcErrorResponse(code int, message string, data any, id any) *JsonRpcResponse {
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Error: &JsonRpcError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// ParseJsonRpcRequest parses a JSON-RPC 2.0 request from raw JSON
func ParseJsonRpcRequest(data []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks the version and method members
func (r *JsonRpcRequest) Validate() error {
	if r.JsonRPC != JsonRpcVersion {
		return fmt.Errorf("invalid JSON-RPC version: %s", r.JsonRPC)
	}
	if r.Method == "" {
		return fmt.Errorf("missing method")
	}
	return nil
}

// String returns a JSON string representation of the request
func (r *JsonRpcRequest) String() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Error marshaling request: %v", err)
	}
	return string(bytes)
}

// String returns a JSON string representation of the response
func (r *JsonRpcResponse) String() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Error marshaling response: %v", err)
	}
	return string(bytes)
}
