package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cases := map[string]string{
		"":                 "",
		"/etc/sdrelay.yml": "/etc/sdrelay.yml",
		"~":                home,
		"~/sdrelay.yaml":   filepath.Join(home, "sdrelay.yaml"),
		"~other/x":         "~other/x",
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("ExpandHome(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ExpandHome(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.WriteFile(filepath.Join(home, "sdrelay.yaml"), []byte("addr: 127.0.0.1:9999\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load("~/sdrelay.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9999" {
		t.Fatalf("addr=%q", cfg.Addr)
	}
}
