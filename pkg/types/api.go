package types

import "encoding/json"

// Envelope is the JSON-RPC 2.0 shaped message used for requests, responses
// and stream payloads.
type Envelope struct {
	// Protocol version tag, always "2.0".
	// example: 2.0
	JSONRPC string `json:"jsonrpc" example:"2.0"`
	// Method name.
	// example: generate
	Method string `json:"method,omitempty" example:"generate"`
	// Optional parameters of a request or notification.
	Params json.RawMessage `json:"params,omitempty" swaggertype:"object"`
	// Optional correlation identifier, echoed back verbatim.
	// example: req-1
	ID json.RawMessage `json:"id,omitempty" swaggertype:"string" example:"req-1"`
	// Result payload on success.
	Result any `json:"result,omitempty"`
	// Error record on failure.
	Error *RPCError `json:"error,omitempty"`
}

// HasID reports whether the envelope carries a non-null identifier.
func (e Envelope) HasID() bool {
	return len(e.ID) > 0 && string(e.ID) != "null"
}

// RPCError is the error record of a failed envelope.
type RPCError struct {
	// JSON-RPC error code.
	// example: -32000
	Code int `json:"code" example:"-32000"`
	// Human-readable message.
	// example: backend returned 503 Service Unavailable
	Message string `json:"message" example:"backend returned 503 Service Unavailable"`
}

// ImageResult is the result payload of a successful generation.
type ImageResult struct {
	// Base64-encoded PNG.
	// example: iVBORw0KGgo=
	Image string `json:"image" example:"iVBORw0KGgo="`
}

// Handshake is the result payload of the first stream event.
type Handshake struct {
	// Service protocol version.
	// example: 1.0.0
	Version string `json:"version" example:"1.0.0"`
	// MCP protocol revision the capability list follows.
	ProtocolVersion string `json:"protocolVersion"`
	// example: sse
	Transport string `json:"transport" example:"sse"`
	// example: stable-diffusion-mcp
	Name string `json:"name" example:"stable-diffusion-mcp"`
	// Readiness flag.
	// example: ready
	Status string `json:"status" example:"ready"`
	// Per-connection session identifier.
	Session string `json:"session,omitempty"`
}

// ToolList is the result payload of the capability advertisement event.
type ToolList struct {
	Tools []Capability `json:"tools"`
}
