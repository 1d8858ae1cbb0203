// Package relay validates image requests, forwards them once to the backend
// and reshapes the reply into an envelope. It also maps backend reachability
// to a ServiceStatus.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"sdrelay/internal/backend"
	"sdrelay/pkg/types"
)

const (
	// ServiceName is reported in every ServiceStatus.
	ServiceName = "stable-diffusion"
	// DefaultHealthID is echoed when a health probe carries no identifier.
	DefaultHealthID = "health-1"

	MethodGenerate = "generate"
	MethodHealth   = "health"
	MethodStatus   = "status"
)

// Backend is the subset of the backend client the relay needs.
type Backend interface {
	Ping(ctx context.Context) error
	Txt2Img(ctx context.Context, req backend.Txt2ImgRequest) (backend.Txt2ImgResponse, error)
}

// Options configures a Service.
type Options struct {
	// Generate holds defaults for POST /generate.
	Generate Defaults
	// Txt2Img holds defaults for POST /txt2img.
	Txt2Img Defaults
	Logger  zerolog.Logger
}

// Service is the relay. It holds no per-request state.
type Service struct {
	backend  Backend
	generate Defaults
	txt2img  Defaults
	log      zerolog.Logger
}

// New constructs a relay around b.
func New(b Backend, opts Options) *Service {
	return &Service{
		backend:  b,
		generate: opts.Generate,
		txt2img:  opts.Txt2Img,
		log:      opts.Logger,
	}
}

// GenerateImage serves POST /generate.
func (s *Service) GenerateImage(ctx context.Context, env types.Envelope) (types.Envelope, error) {
	return s.forward(ctx, MethodGenerate, env, s.generate)
}

// Txt2Img serves POST /txt2img.
func (s *Service) Txt2Img(ctx context.Context, env types.Envelope) (types.Envelope, error) {
	return s.forward(ctx, MethodTxt2Img, env, s.txt2img)
}

func (s *Service) forward(ctx context.Context, method string, env types.Envelope, d Defaults) (types.Envelope, error) {
	req, err := ParseImageRequest(env.Params, d)
	if err != nil {
		return types.Envelope{}, err
	}
	s.log.Debug().Str("method", method).Int("width", req.Width).Int("height", req.Height).Int("steps", req.Steps).Float64("guidance", req.GuidanceScale).Msg("forward txt2img")
	resp, err := s.backend.Txt2Img(ctx, backend.Txt2ImgRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Steps:          req.Steps,
		Width:          req.Width,
		Height:         req.Height,
		CfgScale:       req.GuidanceScale,
		Seed:           req.Seed,
	})
	if err != nil {
		return types.Envelope{}, err
	}
	img, err := firstImage(resp.Images)
	if err != nil {
		return types.Envelope{}, err
	}
	return types.NewResult(method, env.ID, types.ImageResult{Image: img}), nil
}

// firstImage returns the first image if it decodes to a non-empty byte sequence.
func firstImage(images []string) (string, error) {
	if len(images) == 0 {
		return "", backend.ErrMalformed("no images")
	}
	img := images[0]
	if strings.HasPrefix(img, "data:") {
		if i := strings.IndexByte(img, ','); i >= 0 {
			img = img[i+1:]
		}
	}
	b, err := base64.StdEncoding.DecodeString(img)
	if err != nil {
		return "", backend.ErrMalformed("image is not base64")
	}
	if len(b) == 0 {
		return "", backend.ErrMalformed("empty image")
	}
	return img, nil
}

// Status probes the backend and never fails.
func (s *Service) Status(ctx context.Context) types.ServiceStatus {
	st := types.ServiceStatus{Name: ServiceName, Tools: Tools()}
	err := s.backend.Ping(ctx)
	switch {
	case err == nil:
		st.Status = types.Healthy
		st.Description = "Connected to Stable Diffusion Web UI"
	case backend.IsTimeout(err):
		st.Status = types.Unhealthy
		st.Description = "Stable Diffusion Web UI timed out"
	case backend.IsUnreachable(err):
		st.Status = types.Unhealthy
		st.Description = "Cannot connect to Stable Diffusion Web UI"
	default:
		if _, ok := backend.StatusCode(err); ok {
			st.Status = types.Unhealthy
			st.Description = "Stable Diffusion Web UI not responding"
			break
		}
		st.Status = types.Unhealthy
		st.Description = "Cannot connect to Stable Diffusion Web UI: " + err.Error()
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("backend probe failed")
	}
	return st
}

// HealthCheck wraps Status in an envelope, echoing id or DefaultHealthID.
func (s *Service) HealthCheck(ctx context.Context, id json.RawMessage) types.Envelope {
	if len(id) == 0 {
		id = types.StringID(DefaultHealthID)
	}
	return types.NewResult(MethodHealth, id, s.Status(ctx))
}

// Capabilities returns the advertised capability list.
func (s *Service) Capabilities() []types.Capability { return Capabilities() }
