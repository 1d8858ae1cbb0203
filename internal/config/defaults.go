package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAddr              = "127.0.0.1:7861"
	DefaultBackendURL        = "http://localhost:7860"
	DefaultHeartbeatInterval = 15 * time.Second
	DefaultStatusInterval    = time.Second
	DefaultMaxBodyBytes      = 1 << 20
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
)

// GenerateDefaults are used by POST /generate.
var GenerateDefaults = ImageDefaults{Steps: 20, Width: 512, Height: 512, GuidanceScale: 7.5}

// Txt2ImgDefaults are used by POST /txt2img.
var Txt2ImgDefaults = ImageDefaults{Steps: 30, Width: 512, Height: 512, GuidanceScale: 7.5}

// ApplyDefaults fills every unspecified field. BackendTimeout stays zero
// (no timeout) unless set explicitly.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	c.BackendURL = strings.TrimRight(c.BackendURL, "/")
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = Duration(DefaultHeartbeatInterval)
	}
	if c.StatusInterval <= 0 {
		c.StatusInterval = Duration(DefaultStatusInterval)
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"*"}
	}
	c.Generate = c.Generate.merge(GenerateDefaults)
	c.Txt2Img = c.Txt2Img.merge(Txt2ImgDefaults)
}

func (d ImageDefaults) merge(base ImageDefaults) ImageDefaults {
	if d.Steps <= 0 {
		d.Steps = base.Steps
	}
	if d.Width <= 0 {
		d.Width = base.Width
	}
	if d.Height <= 0 {
		d.Height = base.Height
	}
	if d.GuidanceScale <= 0 {
		d.GuidanceScale = base.GuidanceScale
	}
	return d
}

// Validate checks a config after defaults were applied.
func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return fmt.Errorf("backend_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("backend_url: missing host")
	}
	if c.BackendTimeout < 0 {
		return fmt.Errorf("backend_timeout must not be negative")
	}
	return nil
}
