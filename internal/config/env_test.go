package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct{ in string; want []string }{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := SplitCSV(c.in)
		if len(got) != len(c.want) { t.Fatalf("%q -> %v, want %v", c.in, got, c.want) }
		for i := range got {
			if got[i] != c.want[i] { t.Fatalf("%q -> %v, want %v", c.in, got, c.want) }
		}
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SDRELAY_ADDR":               ":9000",
		"SDRELAY_BACKEND_TIMEOUT":    "30s",
		"SDRELAY_HEARTBEAT_INTERVAL": "2",
		"SDRELAY_MAX_BODY_BYTES":     "2048",
		"SDRELAY_SWAGGER":            "true",
		"SDRELAY_CORS_ORIGINS":       "http://a, http://b",
		"SDRELAY_LOG_LEVEL":          "  ",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }
	c := Config{LogLevel: "debug"}
	if err := c.ApplyEnv(lookup); err != nil { t.Fatalf("apply: %v", err) }
	if c.Addr != ":9000" || c.BackendTimeout.D() != 30*time.Second || c.HeartbeatInterval.D() != 2*time.Second { t.Fatalf("unexpected cfg: %+v", c) }
	if c.MaxBodyBytes != 2048 || !c.Swagger { t.Fatalf("unexpected cfg: %+v", c) }
	if len(c.CORS.AllowedOrigins) != 2 || c.CORS.AllowedOrigins[1] != "http://b" { t.Fatalf("cors: %+v", c.CORS) }
	if c.LogLevel != "debug" { t.Fatalf("blank env value must not override, got %q", c.LogLevel) }
}

func TestApplyEnv_Errors(t *testing.T) {
	for _, kv := range [][2]string{
		{"SDRELAY_STATUS_INTERVAL", "later"},
		{"SDRELAY_MAX_BODY_BYTES", "big"},
		{"SDRELAY_SWAGGER", "maybe"},
	} {
		lookup := func(k string) (string, bool) {
			if k == kv[0] { return kv[1], true }
			return "", false
		}
		var c Config
		if err := c.ApplyEnv(lookup); err == nil { t.Fatalf("%s=%s: expected error", kv[0], kv[1]) }
	}
}

func TestLoadDotEnv(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "test.env")
	if err := os.WriteFile(p, []byte("SDRELAY_TEST_DOTENV=from-file\n"), 0o644); err != nil { t.Fatalf("write: %v", err) }
	t.Cleanup(func() { _ = os.Unsetenv("SDRELAY_TEST_DOTENV") })
	if err := LoadDotEnv(filepath.Join(d, "missing.env"), p); err != nil { t.Fatalf("load: %v", err) }
	if got := os.Getenv("SDRELAY_TEST_DOTENV"); got != "from-file" { t.Fatalf("got %q", got) }
}
