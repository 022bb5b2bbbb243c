// Package protocol holds the wire types shared by the proxy, the downstream
// MCP client, and the LLM layer: JSON-RPC messages and tool descriptors.
package protocol

import "fmt"

// JSON-RPC 2.0 methods this system cares about.
const (
	MethodListTools = "tools/list"
	MethodCallTool  = "tools/call"
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Message is a decoded JSON-RPC message of unknown direction. The proxy pumps
// these without fully interpreting them.
type Message map[string]any

// ID returns the message id, nil when absent.
func (m Message) ID() any {
	return m["id"]
}

// IDKey renders the id as a stable map key. JSON-RPC ids may be strings or
// numbers; both stringify unambiguously per type.
func (m Message) IDKey() string {
	return fmt.Sprintf("%v", m["id"])
}

// Method returns the method name for requests, "" otherwise.
func (m Message) Method() string {
	method, _ := m["method"].(string)
	return method
}

// IsRequest reports whether the message is a request or notification.
func (m Message) IsRequest() bool {
	return m.Method() != ""
}

// IsResponse reports whether the message carries a result or error for an id.
func (m Message) IsResponse() bool {
	if m.Method() != "" || m["id"] == nil {
		return false
	}
	_, hasResult := m["result"]
	_, hasError := m["error"]
	return hasResult || hasError
}

// Result returns the response result, nil when absent.
func (m Message) Result() any {
	return m["result"]
}

// ToolName extracts params.name from a tools/call request.
func (m Message) ToolName() string {
	params, ok := m["params"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := params["name"].(string)
	return name
}

// NewErrorResponse builds an error response for a failed request.
func NewErrorResponse(id any, code int, message string, data any) Message {
	return Message{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
			"data":    data,
		},
	}
}
