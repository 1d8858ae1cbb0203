package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	modelsPath  = "/sdapi/v1/sd-models"
	txt2imgPath = "/sdapi/v1/txt2img"
)

// Txt2ImgRequest is the payload accepted by POST /sdapi/v1/txt2img.
type Txt2ImgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CfgScale       float64 `json:"cfg_scale"`
	Seed           *int64  `json:"seed,omitempty"`
}

// Txt2ImgResponse is the subset of the backend reply the relay uses.
type Txt2ImgResponse struct {
	Images []string `json:"images"`
	Info   string   `json:"info,omitempty"`
}

// Client calls a single backend base URL. It is safe for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient constructs a backend client. timeout <= 0 disables the per-call deadline.
func NewClient(baseURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if timeout < 0 {
		timeout = 0
	}
	// Client.Timeout stays zero: deadlines travel on the request context.
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Transport: tr},
	}
}

// BaseURL returns the backend base URL without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Ping probes the model-listing endpoint. Any 2xx reply is success.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "sd-models", http.MethodGet, modelsPath, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	return nil
}

// Txt2Img forwards a generation request and returns the decoded reply.
func (c *Client) Txt2Img(ctx context.Context, req Txt2ImgRequest) (Txt2ImgResponse, error) {
	var out Txt2ImgResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	resp, err := c.do(ctx, "txt2img", http.MethodPost, txt2imgPath, body)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		observe("txt2img", "malformed", 0)
		return out, ErrMalformed(err.Error())
	}
	return out, nil
}

// do issues one request and maps transport failures and non-2xx replies to
// typed errors. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte) (*http.Response, error) {
	parent := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		resp, err := c.send(ctx, parent, endpoint, method, path, body)
		if err != nil || resp == nil {
			cancel()
			return resp, err
		}
		resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.send(ctx, parent, endpoint, method, path, body)
}

func (c *Client) send(ctx, parent context.Context, endpoint, method, path string, body []byte) (*http.Response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Caller went away: report that, not a backend failure.
		if parent.Err() != nil {
			observe(endpoint, "canceled", time.Since(start))
			return nil, parent.Err()
		}
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			observe(endpoint, "timeout", time.Since(start))
			return nil, timeoutError{op: method + " " + path}
		}
		observe(endpoint, "unreachable", time.Since(start))
		return nil, unreachableError{err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		observe(endpoint, "status_"+itoa(resp.StatusCode), time.Since(start))
		return nil, statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	observe(endpoint, "ok", time.Since(start))
	return resp, nil
}

// cancelOnClose releases the per-call deadline once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
