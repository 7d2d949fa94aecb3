// Package executor implements the executor connection and tool dispatcher
// described in SPEC_FULL.md §4.4/§4.5: one persistent subprocess per
// configured tool executor, a JSON-RPC-shaped request/response protocol
// framed one object per line over the child's stdin/stdout, and the
// catalog aggregation + dispatch logic the agent loop drives on every
// iteration.
package executor

import "encoding/json"

// Request is a JSON-RPC 2.0 request sent to an executor subprocess.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 reply from an executor subprocess.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// InitializeParams is sent once per connection to perform the handshake
// (spec.md §4.5: "exchange implementation/version and advertised
// capabilities").
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities is left empty-shaped on the client side; executors may
// advertise richer capabilities in their InitializeResult, but this
// agent does not currently act on any of them.
type Capabilities struct{}

type InitializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolDescriptor is the wire shape of one tool advertised by tools/list
// (spec.md §4.5: "a list of {name, description, input schema}").
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// CallToolParams is the payload of a tools/call request.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentItem is one piece of content in a tool or resource result
// (spec.md §6: `{type:"text", text}|…`).
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Blob string `json:"blob,omitempty"`
}

// CallToolResult is the reply to tools/call.
type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"is_error,omitempty"`
}

// ReadResourceParams is the payload of a resources/read request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

type ReadResourceResult struct {
	Contents []ContentItem `json:"contents"`
}
