// Package backend talks to a Stable Diffusion web UI over its sdapi/v1 HTTP API.
//
// The client performs exactly one request per call: no retries, no backoff and
// no caching. A per-call timeout is applied only when configured; with a zero
// timeout a hung backend blocks until the caller's context is cancelled.
package backend
