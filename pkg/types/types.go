package types

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// JSONRPCVersion is the protocol tag carried by every envelope.
const JSONRPCVersion = mcp.JSONRPC_VERSION

// JSON-RPC error codes used in error envelopes.
const (
	CodeParseError     = mcp.PARSE_ERROR
	CodeInvalidRequest = mcp.INVALID_REQUEST
	CodeMethodNotFound = mcp.METHOD_NOT_FOUND
	CodeInvalidParams  = mcp.INVALID_PARAMS
	CodeInternalError  = mcp.INTERNAL_ERROR
	// CodeServerError is the generic implementation-defined failure code.
	CodeServerError = -32000
)

// StringID encodes s as a JSON-RPC identifier.
func StringID(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// NewResult builds a success envelope.
func NewResult(method string, id json.RawMessage, result any) Envelope {
	return Envelope{JSONRPC: JSONRPCVersion, Method: method, ID: id, Result: result}
}

// NewError builds an error envelope.
func NewError(method string, id json.RawMessage, code int, msg string) Envelope {
	return Envelope{JSONRPC: JSONRPCVersion, Method: method, ID: id, Error: &RPCError{Code: code, Message: msg}}
}

// NewNotification builds an envelope without identifier carrying params.
func NewNotification(method string, params any) (Envelope, error) {
	b, err := json.Marshal(params)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{JSONRPC: JSONRPCVersion, Method: method, Params: b}, nil
}
