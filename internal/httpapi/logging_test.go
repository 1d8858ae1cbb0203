package httpapi

import (
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"weird": LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/generate?log=1", nil)
	if lvl := requestLogLevel(r, LevelOff); lvl != LevelDebug {
		t.Fatalf("log=1 should map to debug, got %v", lvl)
	}
	r = httptest.NewRequest("GET", "/generate?log=error", nil)
	if lvl := requestLogLevel(r, LevelDebug); lvl != LevelError {
		t.Fatalf("log=error should be error, got %v", lvl)
	}
	r = httptest.NewRequest("GET", "/generate", nil)
	r.Header.Set("X-Log-Level", "info")
	if lvl := requestLogLevel(r, LevelOff); lvl != LevelInfo {
		t.Fatalf("header info should be info, got %v", lvl)
	}
	r = httptest.NewRequest("GET", "/generate", nil)
	if lvl := requestLogLevel(r, LevelError); lvl != LevelError {
		t.Fatalf("default should apply without overrides, got %v", lvl)
	}
}
