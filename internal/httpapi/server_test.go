package httpapi

import (
	"bytes"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sdrelay/internal/backend"
	"sdrelay/internal/relay"
	"sdrelay/internal/stream"
	"sdrelay/pkg/types"
)

var testDefaults = relay.Defaults{Steps: 20, Width: 512, Height: 512, GuidanceScale: 7.5}

// webUI fakes the two backend endpoints the relay calls.
type webUI struct {
	pingStatus int
	images     string
	status     int
	delay      time.Duration

	mu  sync.Mutex
	got map[string]any
}

func (f *webUI) sent(key string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got[key]
}

func (f *webUI) called() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.got != nil
}

func (f *webUI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}
	switch r.URL.Path {
	case "/sdapi/v1/sd-models":
		if f.pingStatus != 0 {
			w.WriteHeader(f.pingStatus)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	case "/sdapi/v1/txt2img":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.got = body
		f.mu.Unlock()
		if f.status != 0 {
			http.Error(w, "model loading", f.status)
			return
		}
		images := f.images
		if images == "" {
			images = `["QUJD"]`
		}
		_, _ = w.Write([]byte(`{"images":` + images + `}`))
	default:
		http.NotFound(w, r)
	}
}

// newTestMux wires the real relay against a fake web UI.
func newTestMux(t *testing.T, ui *webUI, timeout time.Duration) http.Handler {
	t.Helper()
	srv := httptest.NewServer(ui)
	t.Cleanup(srv.Close)
	return newMuxFor(srv.URL, timeout, Options{})
}

func newMuxFor(url string, timeout time.Duration, opts Options) http.Handler {
	rel := relay.New(backend.NewClient(url, timeout), relay.Options{
		Generate: testDefaults,
		Txt2Img:  relay.Defaults{Steps: 30, Width: 512, Height: 512, GuidanceScale: 7.5},
	})
	if opts.Streams == nil {
		opts.Streams = stream.New(stream.Options{
			StatusInterval: 20 * time.Millisecond,
			Capabilities:   relay.Capabilities,
			Status:         rel.Status,
		})
	}
	return NewMux(rel, opts)
}

func post(h http.Handler, path, ct, body string) (*httptest.ResponseRecorder, types.Envelope) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env types.Envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestGenerate_RedApple(t *testing.T) {
	ui := &webUI{}
	h := newTestMux(t, ui, 0)
	rec, _ := post(h, "/generate", "application/json", `{"jsonrpc":"2.0","method":"generate","id":"1","params":{"prompt":"a red apple","width":512,"height":512}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ID     string `json:"id"`
		Result struct {
			Image string `json:"image"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Result.Image != "QUJD" || out.ID != "1" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if ui.sent("steps") != float64(20) || ui.sent("cfg_scale") != 7.5 {
		t.Fatalf("defaults not forwarded: steps=%v cfg=%v", ui.sent("steps"), ui.sent("cfg_scale"))
	}
}

func TestGenerate_BareJSONWithoutContentType(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec, env := post(h, "/generate", "", `{"prompt":"a red apple"}`)
	if rec.Code != http.StatusOK || env.Error != nil {
		t.Fatalf("expected success, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.ID) != 0 {
		t.Fatalf("no id was sent, got %s", env.ID)
	}
}

func TestTxt2Img_UsesItsDefaults(t *testing.T) {
	ui := &webUI{}
	h := newTestMux(t, ui, 0)
	rec, env := post(h, "/txt2img", "application/json", `{"prompt":"a lighthouse"}`)
	if rec.Code != http.StatusOK || env.Method != relay.MethodTxt2Img {
		t.Fatalf("unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if ui.sent("steps") != float64(30) {
		t.Fatalf("expected 30 steps, got %v", ui.sent("steps"))
	}
}

func TestGenerate_MissingPrompt(t *testing.T) {
	ui := &webUI{}
	h := newTestMux(t, ui, 0)
	rec, env := post(h, "/generate", "application/json", `{"jsonrpc":"2.0","method":"generate","id":7,"params":{"width":512}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != types.CodeInvalidParams {
		t.Fatalf("expected invalid params error, got %s", rec.Body.String())
	}
	if string(env.ID) != "7" {
		t.Fatalf("id not echoed: %s", env.ID)
	}
	if ui.called() {
		t.Fatalf("backend must not be called on validation failure")
	}
}

func TestGenerate_OutOfBounds(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec, env := post(h, "/generate", "application/json", `{"prompt":"x","width":4096}`)
	if rec.Code != http.StatusBadRequest || env.Error == nil || !strings.Contains(env.Error.Message, "width") {
		t.Fatalf("expected width validation error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_InvalidJSON(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec, env := post(h, "/generate", "application/json", `{"prompt":`)
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != types.CodeParseError {
		t.Fatalf("expected parse error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_BadVersion(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec, env := post(h, "/generate", "application/json", `{"jsonrpc":"1.0","id":"a","params":{"prompt":"x"}}`)
	if rec.Code != http.StatusBadRequest || env.Error == nil || env.Error.Code != types.CodeInvalidRequest {
		t.Fatalf("expected invalid request, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGenerate_WrongContentType(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec, env := post(h, "/generate", "text/plain", `{"prompt":"x"}`)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != types.CodeInvalidRequest {
		t.Fatalf("expected invalid request code, got %s", rec.Body.String())
	}
}

func TestGenerate_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(&webUI{})
	defer srv.Close()
	h := newMuxFor(srv.URL, 0, Options{MaxBodyBytes: 32})
	body := `{"prompt":"` + strings.Repeat("a", 64) + `"}`
	rec, _ := post(h, "/generate", "application/json", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestGenerate_BackendErrorMapping(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedURL := "http://" + ln.Addr().String()
	_ = ln.Close()

	cases := []struct {
		name   string
		mux    func(t *testing.T) http.Handler
		status int
	}{
		{"backend 503", func(t *testing.T) http.Handler { return newTestMux(t, &webUI{status: 503}, 0) }, http.StatusBadGateway},
		{"malformed image", func(t *testing.T) http.Handler { return newTestMux(t, &webUI{images: `["not base64!"]`}, 0) }, http.StatusBadGateway},
		{"no images", func(t *testing.T) http.Handler { return newTestMux(t, &webUI{images: `[]`}, 0) }, http.StatusBadGateway},
		{"unreachable", func(t *testing.T) http.Handler { return newMuxFor(closedURL, 0, Options{}) }, http.StatusServiceUnavailable},
		{"timeout", func(t *testing.T) http.Handler { return newTestMux(t, &webUI{delay: time.Second}, 50*time.Millisecond) }, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := post(tc.mux(t), "/generate", "application/json", `{"jsonrpc":"2.0","id":"9","params":{"prompt":"x"}}`)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if env.Error == nil || env.Error.Code != types.CodeServerError {
				t.Fatalf("expected -32000 error, got %s", rec.Body.String())
			}
			if !strings.HasPrefix(env.Error.Message, "Failed to generate image: ") {
				t.Fatalf("unexpected message %q", env.Error.Message)
			}
			if env.Result != nil {
				t.Fatalf("error envelope must not carry a result")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health?id=probe-7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		ID     string              `json:"id"`
		Method string              `json:"method"`
		Result types.ServiceStatus `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != "probe-7" || out.Method != relay.MethodHealth || out.Result.Status != types.Healthy {
		t.Fatalf("unexpected health: %s", rec.Body.String())
	}
}

func TestHealth_UnreachableStill200(t *testing.T) {
	h := newMuxFor("http://127.0.0.1:1", 0, Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		ID     string              `json:"id"`
		Result types.ServiceStatus `json:"result"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out.ID != relay.DefaultHealthID || out.Result.Status != types.Unhealthy || out.Result.Description == "" {
		t.Fatalf("unexpected health: %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestMux(t, &webUI{}, 0)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestGenerate_LogsWithZerologDebug(t *testing.T) {
	var buf bytes.Buffer
	srv := httptest.NewServer(&webUI{})
	defer srv.Close()
	h := newMuxFor(srv.URL, 0, Options{Logger: zerologTo(&buf)})
	req := httptest.NewRequest(http.MethodPost, "/generate?log=debug", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	out := buf.String()
	for _, want := range []string{`"generate start"`, `"decoded request"`, `"generate end"`, `"request_id"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %s: %s", want, out)
		}
	}
}
