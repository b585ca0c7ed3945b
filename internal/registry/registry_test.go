package registry

import (
	"errors"
	"strings"
	"testing"

	"routeplay/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{WrapperBaseURL: "http://w:8000", WrapperAPIKey: "k", OrtoolsLocalURL: config.EmbeddedURL}
}

func TestFromConfigStockBackends(t *testing.T) {
	r := FromConfig(testConfig())
	want := []string{"ortools-local", "vroom-distribute", "vroom-optimize", "vroom-optimize-basic", "vroom-optimize-premium"}
	got := r.IDs()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("ids = %v", got)
	}
	d, err := r.Lookup("vroom-optimize-premium")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if d.URL != "http://w:8000/optimize/premium" || d.APIKey != "k" {
		t.Fatalf("descriptor = %+v", d)
	}
	if dist, _ := r.Lookup("vroom-distribute"); dist.APIKey != "" {
		t.Fatal("distribute backend must not carry a key")
	}
	if local, _ := r.Lookup("ortools-local"); !local.IsEmbedded() {
		t.Fatal("ortools-local should be embedded")
	}
}

func TestLookupUnknownListsIDs(t *testing.T) {
	r := FromConfig(testConfig())
	_, err := r.Lookup("nonexistent-server")
	var ue *UnknownBackendError
	if !errors.As(err, &ue) {
		t.Fatalf("want UnknownBackendError, got %v", err)
	}
	for _, id := range r.IDs() {
		if !strings.Contains(err.Error(), id) {
			t.Fatalf("message %q does not list %s", err.Error(), id)
		}
	}
}

func TestConfiguredBackendOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Backends = []config.BackendConfig{{ID: "ortools-local", URL: "http://remote-ortools/solve", Description: "remote"}}
	r := FromConfig(cfg)
	d, _ := r.Lookup("ortools-local")
	if d.IsEmbedded() || d.Description != "remote" {
		t.Fatalf("override not applied: %+v", d)
	}
	if len(r.List()) != 5 {
		t.Fatalf("override should not add an entry, got %d", len(r.List()))
	}
}
