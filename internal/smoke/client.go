// Package smoke is a small client for poking a running relay by hand: it
// generates an image, probes health and tails the event streams.
package smoke

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sdrelay/internal/stream"
	"sdrelay/pkg/types"
)

// RPCError is an error envelope returned by the relay.
type RPCError struct {
	Status  int
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("relay returned %d: %d %s", e.Status, e.Code, e.Message)
}

// Client talks to one relay.
type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// New returns a client for the relay at base. Streams are never cut by the
// client; use the context to bound them.
func New(base string, log zerolog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{},
		log:  log,
	}
}

// Generate sends req to /generate and returns the decoded image bytes.
func (c *Client) Generate(ctx context.Context, req types.ImageRequest) ([]byte, error) {
	params, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	env := types.Envelope{
		JSONRPC: types.JSONRPCVersion,
		Method:  "generate",
		ID:      types.StringID(uuid.NewString()),
		Params:  params,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	start := time.Now()
	var out struct {
		Result *types.ImageResult `json:"result"`
		Error  *types.RPCError    `json:"error"`
	}
	status, err := c.do(hreq, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, &RPCError{Status: status, Code: out.Error.Code, Message: out.Error.Message}
	}
	if out.Result == nil {
		return nil, fmt.Errorf("relay returned %d without result", status)
	}
	img, err := base64.StdEncoding.DecodeString(out.Result.Image)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	c.log.Debug().Dur("dur", time.Since(start)).Int("bytes", len(img)).Msg("generated")
	return img, nil
}

// Health calls /health, echoing id when set.
func (c *Client) Health(ctx context.Context, id string) (types.ServiceStatus, string, error) {
	u := c.base + "/health"
	if id != "" {
		u += "?id=" + url.QueryEscape(id)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return types.ServiceStatus{}, "", err
	}
	var out struct {
		ID     string              `json:"id"`
		Result types.ServiceStatus `json:"result"`
	}
	if _, err := c.do(hreq, &out); err != nil {
		return types.ServiceStatus{}, "", err
	}
	return out.Result, out.ID, nil
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return resp.StatusCode, fmt.Errorf("relay returned %d with undecodable body: %w", resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

// Watch reads count events from path and hands each to fn. A count of zero
// reads until ctx is done or the stream ends.
func (c *Client) Watch(ctx context.Context, path string, count int, fn func(stream.Event)) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	hreq.Header.Set("Accept", "text/event-stream")
	resp, err := c.http.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	rd := stream.NewReader(resp.Body)
	for n := 0; count == 0 || n < count; n++ {
		ev, err := rd.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err == io.EOF {
				return fmt.Errorf("stream ended after %d events", n)
			}
			return err
		}
		fn(ev)
	}
	return nil
}

// WaitReady polls /healthz until it answers 200 or timeout passes.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	probe := &http.Client{Timeout: 2 * time.Second}
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/healthz", nil)
		resp, err := probe.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s/healthz", c.base)
		}
	}
}
