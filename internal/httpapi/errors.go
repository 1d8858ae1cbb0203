package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"sdrelay/internal/backend"
	"sdrelay/internal/relay"
	"sdrelay/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// classify maps an error from the relay to an HTTP status, a JSON-RPC code and
// the message sent to the client.
func classify(err error) (status, code int, msg string) {
	switch {
	case relay.IsValidation(err):
		return http.StatusBadRequest, types.CodeInvalidParams, err.Error()
	case relay.IsInvalidRequest(err):
		return http.StatusBadRequest, types.CodeInvalidRequest, err.Error()
	case backend.IsTimeout(err):
		return http.StatusGatewayTimeout, types.CodeServerError, "Failed to generate image: " + err.Error()
	case backend.IsUnreachable(err):
		return http.StatusServiceUnavailable, types.CodeServerError, "Failed to generate image: " + err.Error()
	case backend.IsMalformed(err):
		return http.StatusBadGateway, types.CodeServerError, "Failed to generate image: " + err.Error()
	}
	if _, ok := backend.StatusCode(err); ok {
		return http.StatusBadGateway, types.CodeServerError, "Failed to generate image: " + err.Error()
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode(), types.CodeServerError, he.Error()
	}
	return http.StatusInternalServerError, types.CodeServerError, err.Error()
}

// writeEnvelope writes env as JSON with the given status.
func writeEnvelope(w http.ResponseWriter, status int, env types.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// writeJSONError writes a consistent JSON-RPC error payload.
func writeJSONError(w http.ResponseWriter, status int, method string, id json.RawMessage, code int, msg string) {
	writeEnvelope(w, status, types.NewError(method, id, code, msg))
}
