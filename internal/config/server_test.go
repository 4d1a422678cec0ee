package config

import (
	"os"
	"testing"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	cfg, err := LoadServerConfig("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Default log level mismatch: got %s, want info", cfg.LogLevel)
	}

	if len(cfg.BundlePaths) != 1 || cfg.BundlePaths[0] != "./bundles" {
		t.Errorf("Default bundle paths mismatch: got %v, want [./bundles]", cfg.BundlePaths)
	}

	if cfg.Wasm.MemoryPages != 256 {
		t.Errorf("Default memory pages mismatch: got %d, want 256", cfg.Wasm.MemoryPages)
	}

	if cfg.Wasm.MaxInstances != 100 {
		t.Errorf("Default max instances mismatch: got %d, want 100", cfg.Wasm.MaxInstances)
	}
}

func TestLoadServerConfigFromFile(t *testing.T) {
	// Create temporary config file
	tmpfile, err := os.CreateTemp("", "config*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	configContent := `
log_level: debug
bundle_paths:
  - /srv/kannader/bundles
wasm:
  memory_pages: 64
`
	if _, err := tmpfile.Write([]byte(configContent)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServerConfig(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("Log level mismatch: got %s, want debug", cfg.LogLevel)
	}

	if len(cfg.BundlePaths) != 1 || cfg.BundlePaths[0] != "/srv/kannader/bundles" {
		t.Errorf("Bundle paths mismatch: got %v", cfg.BundlePaths)
	}

	if cfg.Wasm.MemoryPages != 64 {
		t.Errorf("Memory pages mismatch: got %d, want 64", cfg.Wasm.MemoryPages)
	}
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	if _, err := LoadServerConfig("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}
