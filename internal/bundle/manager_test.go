package bundle

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/internal/config"
	"github.com/median-kliniken/kannader/internal/wasm"
)

func TestManager_NewManager(t *testing.T) {
	runtime := newTestRuntime(t)
	logger := zap.NewNop()

	cfg := &config.ServerConfig{
		BundlePaths: []string{"/tmp/bundles"},
	}

	manager := NewManager(cfg, runtime, wasm.NewHostFunctions(logger), logger)
	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
}

func TestManager_LoadAll_EmptyPaths(t *testing.T) {
	ctx := context.Background()
	runtime := newTestRuntime(t)
	logger := zap.NewNop()

	cfg := &config.ServerConfig{
		BundlePaths: []string{t.TempDir()},
	}
	manager := NewManager(cfg, runtime, wasm.NewHostFunctions(logger), logger)

	// No bundles is not an error; the server simply has no policies.
	if err := manager.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	if !manager.IsLoaded() {
		t.Error("Manager should be loaded")
	}

	// Loading twice is rejected.
	if err := manager.LoadAll(ctx); err == nil {
		t.Error("second LoadAll() should fail")
	}
}

func TestManager_GetBundle_NotFound(t *testing.T) {
	runtime := newTestRuntime(t)
	logger := zap.NewNop()

	manager := NewManager(&config.ServerConfig{}, runtime, wasm.NewHostFunctions(logger), logger)

	_, err := manager.GetBundle("nonexistent")
	if err == nil {
		t.Fatal("GetBundle() should fail for non-existent bundle")
	}

	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}
}

func TestManager_Spawn_NotFound(t *testing.T) {
	ctx := context.Background()
	runtime := newTestRuntime(t)
	logger := zap.NewNop()

	manager := NewManager(&config.ServerConfig{}, runtime, wasm.NewHostFunctions(logger), logger)

	_, err := manager.Spawn(ctx, "nonexistent")
	if err == nil {
		t.Fatal("Spawn() should fail for non-existent bundle")
	}

	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}
}

func TestManager_Spawn_RejectsModuleWithoutExports(t *testing.T) {
	ctx := context.Background()
	runtime := newTestRuntime(t)
	logger := zap.NewNop()

	dir := writeBundleDir(t, validManifest, "greylist.wasm", "policy.yaml")
	manager := NewManager(&config.ServerConfig{}, runtime, wasm.NewHostFunctions(logger), logger)

	loader := NewLoader(runtime, logger)
	b, err := loader.LoadBundle(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := manager.Registry().Register(b); err != nil {
		t.Fatal(err)
	}

	// The module exports memory but none of the procedures, so the
	// client build must reject it before setup.
	_, err = manager.Spawn(ctx, "greylist")
	if err == nil {
		t.Fatal("Spawn() should reject a module without the protocol exports")
	}

	if _, ok := err.(*LoadError); !ok {
		t.Errorf("expected LoadError, got %T", err)
	}
}

func TestManager_Shutdown(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	manager := NewManager(&config.ServerConfig{}, runtime, wasm.NewHostFunctions(logger), logger)

	if err := manager.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}

	if !runtime.IsClosed() {
		t.Error("Runtime should be closed after shutdown")
	}
}
