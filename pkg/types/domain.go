package types

// ImageRequest is a text-to-image request after defaults are applied.
type ImageRequest struct {
	// Required prompt text.
	// example: a red apple
	Prompt string `json:"prompt" example:"a red apple"`
	// Things the image should not contain.
	NegativePrompt string `json:"negative_prompt"`
	// example: 512
	Width int `json:"width" example:"512"`
	// example: 512
	Height int `json:"height" example:"512"`
	// Number of denoising steps.
	// example: 20
	Steps int `json:"steps" example:"20"`
	// Classifier-free guidance scale.
	// example: 7.5
	GuidanceScale float64 `json:"guidance_scale" example:"7.5"`
	// Optional seed for reproducible output.
	// example: 42
	Seed *int64 `json:"seed,omitempty" example:"42"`
}

// HealthState is the two-valued backend health.
type HealthState string

const (
	Healthy   HealthState = "healthy"
	Unhealthy HealthState = "unhealthy"
)

// ServiceStatus describes the relay and the reachability of its backend.
type ServiceStatus struct {
	// example: stable-diffusion
	Name string `json:"name" example:"stable-diffusion"`
	// example: healthy
	Status HealthState `json:"status" example:"healthy"`
	// example: Connected to Stable Diffusion Web UI
	Description string `json:"description" example:"Connected to Stable Diffusion Web UI"`
	Tools       []Tool `json:"tools"`
}

// Tool is a name and description pair advertised in ServiceStatus.
type Tool struct {
	// example: txt2img
	Name string `json:"name" example:"txt2img"`
	// example: Generate an image from a text prompt
	Description string `json:"description" example:"Generate an image from a text prompt"`
}

// Capability describes a method and the schema of its parameters.
type Capability struct {
	Method      string      `json:"method"`
	Description string      `json:"description,omitempty"`
	Params      ParamSchema `json:"params"`
}

// ParamSchema is an object schema in the shape clients of the stream expect.
type ParamSchema struct {
	Type       string                   `json:"type"`
	Properties map[string]ParamProperty `json:"properties"`
	Required   []string                 `json:"required"`
}

// ParamProperty describes a single parameter field.
type ParamProperty struct {
	Type     string   `json:"type"`
	Minimum  *float64 `json:"minimum,omitempty"`
	Maximum  *float64 `json:"maximum,omitempty"`
	Optional bool     `json:"optional,omitempty"`
}
