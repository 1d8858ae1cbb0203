package relay

import (
	"sort"

	"sdrelay/pkg/types"
)

// MethodTxt2Img is the advertised generation capability.
const MethodTxt2Img = "txt2img"

func bound(v float64) *float64 { return &v }

// txt2imgCapability is the single source of truth for request bounds: the
// stream advertises it and validate enforces it.
var txt2imgCapability = types.Capability{
	Method:      MethodTxt2Img,
	Description: "Generate an image from a text prompt",
	Params: types.ParamSchema{
		Type: "object",
		Properties: map[string]types.ParamProperty{
			"prompt":              {Type: "string"},
			"negative_prompt":     {Type: "string", Optional: true},
			"width":               {Type: "integer", Minimum: bound(64), Maximum: bound(2048)},
			"height":              {Type: "integer", Minimum: bound(64), Maximum: bound(2048)},
			"num_inference_steps": {Type: "integer", Minimum: bound(1), Maximum: bound(150)},
			"guidance_scale":      {Type: "number", Minimum: bound(1), Maximum: bound(20)},
			"seed":                {Type: "integer", Optional: true},
		},
		Required: []string{"prompt"},
	},
}

// Capabilities returns the advertised capability list. Callers may modify the result.
func Capabilities() []types.Capability {
	c := txt2imgCapability
	props := make(map[string]types.ParamProperty, len(c.Params.Properties))
	for k, v := range c.Params.Properties {
		props[k] = v
	}
	c.Params.Properties = props
	c.Params.Required = append([]string(nil), c.Params.Required...)
	return []types.Capability{c}
}

// Tools returns the name and description pairs reported in ServiceStatus.
func Tools() []types.Tool {
	caps := Capabilities()
	out := make([]types.Tool, 0, len(caps))
	for _, c := range caps {
		out = append(out, types.Tool{Name: c.Method, Description: c.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// checkBounds validates v against the advertised bounds of field.
func checkBounds(field string, v float64) error {
	p, ok := txt2imgCapability.Params.Properties[field]
	if !ok {
		return nil
	}
	if p.Minimum != nil && v < *p.Minimum {
		return ErrValidation(field, "must be >= %g", *p.Minimum)
	}
	if p.Maximum != nil && v > *p.Maximum {
		return ErrValidation(field, "must be <= %g", *p.Maximum)
	}
	return nil
}

// aliases maps accepted spellings onto advertised field names.
var aliases = map[string]string{
	"steps":     "num_inference_steps",
	"cfg_scale": "guidance_scale",
}

// schemaType returns the advertised JSON type of field, or "" when unknown.
func schemaType(field string) string {
	if a, ok := aliases[field]; ok {
		field = a
	}
	return txt2imgCapability.Params.Properties[field].Type
}
