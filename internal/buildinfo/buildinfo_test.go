package buildinfo

import "testing"

func TestInfoCarriesVersion(t *testing.T) {
    old := Version
    Version = "1.2.3"
    defer func() { Version = old }()
    info := Info()
    if info["version"] != "1.2.3" {
        t.Fatalf("version = %q", info["version"])
    }
    if _, ok := info["builtAt"]; !ok {
        t.Fatal("builtAt key missing")
    }
}
