package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"sdrelay/pkg/types"
)

// Defaults are filled into a request for every omitted field.
type Defaults struct {
	Steps         int
	Width         int
	Height        int
	GuidanceScale float64
}

// imageParams mirrors ImageRequest with pointers so omitted and zero differ.
// steps and guidance accept both the web UI and the diffusers spelling.
type imageParams struct {
	Prompt            *string  `json:"prompt"`
	NegativePrompt    *string  `json:"negative_prompt"`
	Width             *int     `json:"width"`
	Height            *int     `json:"height"`
	Steps             *int     `json:"steps"`
	NumInferenceSteps *int     `json:"num_inference_steps"`
	GuidanceScale     *float64 `json:"guidance_scale"`
	CfgScale          *float64 `json:"cfg_scale"`
	Seed              *int64   `json:"seed"`
}

// DecodeEnvelope parses a request body that is either a JSON-RPC envelope or a
// bare JSON object of image parameters (optionally carrying "id").
func DecodeEnvelope(body []byte) (types.Envelope, error) {
	var env types.Envelope
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return env, invalidRequestError{msg: "body must be a JSON object"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return env, invalidRequestError{msg: err.Error()}
	}
	_, hasParams := fields["params"]
	_, hasVersion := fields["jsonrpc"]
	_, hasMethod := fields["method"]
	if !hasParams && !hasVersion && !hasMethod {
		// bare JSON: the whole body is the parameter object
		env.JSONRPC = types.JSONRPCVersion
		env.ID = fields["id"]
		env.Params = json.RawMessage(body)
		return env, nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return env, invalidRequestError{msg: te.Field + " has the wrong type"}
		}
		return env, invalidRequestError{msg: err.Error()}
	}
	if env.JSONRPC != "" && env.JSONRPC != types.JSONRPCVersion {
		return env, invalidRequestError{msg: "jsonrpc must be \"2.0\""}
	}
	env.JSONRPC = types.JSONRPCVersion
	return env, nil
}

// ParseImageRequest decodes params into an ImageRequest, applies d and checks
// the advertised bounds.
func ParseImageRequest(params json.RawMessage, d Defaults) (types.ImageRequest, error) {
	var req types.ImageRequest
	raw := bytes.TrimSpace(params)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return req, ErrValidation("prompt", "is required")
	}
	var p imageParams
	if err := json.Unmarshal(raw, &p); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			if te.Field == "" {
				return req, ErrValidation("params", "must be an object")
			}
			want := schemaType(te.Field)
			if want == "" {
				want = te.Type.String()
			}
			return req, ErrValidation(te.Field, "must be %s, got %s", article(want), te.Value)
		}
		return req, ErrValidation("params", "%v", err)
	}
	if p.Prompt == nil || strings.TrimSpace(*p.Prompt) == "" {
		return req, ErrValidation("prompt", "is required")
	}
	req = types.ImageRequest{
		Prompt:        *p.Prompt,
		Width:         d.Width,
		Height:        d.Height,
		Steps:         d.Steps,
		GuidanceScale: d.GuidanceScale,
		Seed:          p.Seed,
	}
	if p.NegativePrompt != nil {
		req.NegativePrompt = *p.NegativePrompt
	}
	if p.Width != nil {
		if err := checkBounds("width", float64(*p.Width)); err != nil {
			return req, err
		}
		req.Width = *p.Width
	}
	if p.Height != nil {
		if err := checkBounds("height", float64(*p.Height)); err != nil {
			return req, err
		}
		req.Height = *p.Height
	}
	if steps, name := firstInt(p.Steps, "steps", p.NumInferenceSteps, "num_inference_steps"); steps != nil {
		if err := checkBounds("num_inference_steps", float64(*steps)); err != nil {
			return req, ErrValidation(name, "%s", err.(validationError).msg)
		}
		req.Steps = *steps
	}
	if g, name := firstFloat(p.GuidanceScale, "guidance_scale", p.CfgScale, "cfg_scale"); g != nil {
		if err := checkBounds("guidance_scale", *g); err != nil {
			return req, ErrValidation(name, "%s", err.(validationError).msg)
		}
		req.GuidanceScale = *g
	}
	return req, nil
}

func firstInt(a *int, an string, b *int, bn string) (*int, string) {
	if a != nil {
		return a, an
	}
	return b, bn
}

func firstFloat(a *float64, an string, b *float64, bn string) (*float64, string) {
	if a != nil {
		return a, an
	}
	return b, bn
}

func article(t string) string {
	switch t {
	case "integer":
		return "an integer"
	case "object", "array":
		return "an " + t
	default:
		return "a " + t
	}
}
