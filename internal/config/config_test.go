package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ROUTEPLAY_CONFIG", "BACKENDS_FILE", "WRAPPER_BASE_URL", "WRAPPER_API_KEY", "ORTOOLS_LOCAL_URL",
		"MAP_MATCHING_URL", "API_HOST", "API_PORT", "PORT", "JOB_WORKERS", "JOB_QUEUE", "RATE_RPS", "RATE_BURST", "TRUST_PROXY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WrapperBaseURL != DefaultWrapperBaseURL || cfg.WrapperAPIKey != DefaultWrapperAPIKey {
		t.Fatalf("wrapper defaults: %+v", cfg)
	}
	if cfg.OrtoolsLocalURL != EmbeddedURL {
		t.Fatalf("ortools url = %q", cfg.OrtoolsLocalURL)
	}
	if cfg.MapMatchingURL != DefaultWrapperBaseURL+"/map-matching/match" {
		t.Fatalf("map matching url = %q", cfg.MapMatchingURL)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
	if cfg.TrustProxy {
		t.Fatal("TRUST_PROXY must default to false")
	}
	if cfg.JobWorkers != 4 || cfg.JobQueue != 256 {
		t.Fatalf("job pool defaults: %d/%d", cfg.JobWorkers, cfg.JobQueue)
	}
}

func TestLoadFileEnvWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "routeplay.yaml")
	data := []byte("wrapper:\n  base_url: http://file:9000/\n  api_key: file-key\nserver:\n  port: \"9999\"\nbackends:\n  - id: osrm-lab\n    url: http://lab/solve\n    description: Lab\n")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ROUTEPLAY_CONFIG", path)
	t.Setenv("WRAPPER_API_KEY", "env-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WrapperBaseURL != "http://file:9000" {
		t.Fatalf("base url from file (trailing slash trimmed): %q", cfg.WrapperBaseURL)
	}
	if cfg.WrapperAPIKey != "env-key" {
		t.Fatalf("env should win over file, got %q", cfg.WrapperAPIKey)
	}
	if cfg.Port != "9999" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if len(cfg.Backends) != 1 || cfg.Backends[0].ID != "osrm-lab" {
		t.Fatalf("backends = %+v", cfg.Backends)
	}
}

func TestLoadFileRejectsIncompleteBackend(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("backends:\n  - id: x\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for backend without url")
	}
}
