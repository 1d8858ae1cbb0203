package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the relay.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr              string        `json:"addr" yaml:"addr" toml:"addr"`
	BackendURL        string        `json:"backend_url" yaml:"backend_url" toml:"backend_url"`
	BackendTimeout    Duration      `json:"backend_timeout" yaml:"backend_timeout" toml:"backend_timeout"`
	HeartbeatInterval Duration      `json:"heartbeat_interval" yaml:"heartbeat_interval" toml:"heartbeat_interval"`
	StatusInterval    Duration      `json:"status_interval" yaml:"status_interval" toml:"status_interval"`
	MaxBodyBytes      int64         `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel          string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat         string        `json:"log_format" yaml:"log_format" toml:"log_format"`
	Swagger           bool          `json:"swagger" yaml:"swagger" toml:"swagger"`
	CORS              CORSConfig    `json:"cors" yaml:"cors" toml:"cors"`
	Generate          ImageDefaults `json:"generate" yaml:"generate" toml:"generate"`
	Txt2Img           ImageDefaults `json:"txt2img" yaml:"txt2img" toml:"txt2img"`
}

// CORSConfig controls the CORS middleware. CORS is on unless Disabled is set.
type CORSConfig struct {
	Disabled       bool     `json:"disabled" yaml:"disabled" toml:"disabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// ImageDefaults are the values filled into a generation request when omitted.
type ImageDefaults struct {
	Steps         int     `json:"steps" yaml:"steps" toml:"steps"`
	Width         int     `json:"width" yaml:"width" toml:"width"`
	Height        int     `json:"height" yaml:"height" toml:"height"`
	GuidanceScale float64 `json:"guidance_scale" yaml:"guidance_scale" toml:"guidance_scale"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Resolve loads the optional file at path, then overlays environment variables.
// Defaults are not applied so callers can still layer flags on top.
func Resolve(path string) (Config, error) {
	var cfg Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}
