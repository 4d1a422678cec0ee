package wasm

import (
	"context"
	"os"
	"testing"

	"go.uber.org/zap/zaptest"
)

// memoryModuleBytes is a minimal Wasm module exporting 1 page of
// memory (64KB), the least a policy module can offer.
func memoryModuleBytes() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, // Magic number: \0asm
		0x01, 0x00, 0x00, 0x00, // Version: 1
		// Memory section (1 page)
		0x05, 0x03, 0x01, 0x00, 0x01,
		// Export section: export "memory" as memory 0
		0x07, 0x0a, 0x01, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	}
}

// TestLoadModuleFromMemory loads a minimal valid Wasm module from a
// byte slice and exercises the compilation cache.
func TestLoadModuleFromMemory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	module, err := loader.LoadModuleFromMemory(ctx, "memory-module", memoryModuleBytes())
	if err != nil {
		t.Fatalf("Failed to load module: %v", err)
	}

	if module == nil {
		t.Fatal("Module is nil")
	}

	if module.Name != "memory-module" {
		t.Errorf("Module name = %s, want 'memory-module'", module.Name)
	}

	if module.SizeBytes != int64(len(memoryModuleBytes())) {
		t.Errorf("SizeBytes = %d, want %d", module.SizeBytes, len(memoryModuleBytes()))
	}

	// Loading again should hit the cache.
	module2, err := loader.LoadModuleFromMemory(ctx, "memory-module", memoryModuleBytes())
	if err != nil {
		t.Fatalf("Failed to load module from cache: %v", err)
	}

	if module2 != module {
		t.Error("Cache should return the same module instance")
	}
}

// TestModuleLoaderFileSource tests the FileModuleSource.
func TestModuleLoaderFileSource(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	tmpDir := t.TempDir()
	wasmFile := tmpDir + "/policy.wasm"

	if err := os.WriteFile(wasmFile, memoryModuleBytes(), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := loader.LoadModuleFromFile(ctx, wasmFile); err != nil {
		t.Fatalf("Failed to load module from file: %v", err)
	}
}

// TestLoadModuleInvalidBytes verifies garbage is rejected with a typed
// compilation error.
func TestLoadModuleInvalidBytes(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	_, err = loader.LoadModuleFromMemory(ctx, "broken", []byte("not wasm"))
	if err == nil {
		t.Fatal("Expected compilation error")
	}
	if _, ok := err.(*CompilationError); !ok {
		t.Errorf("Error type = %T, want *CompilationError", err)
	}
}

// TestLoadModuleWithoutMemoryExport verifies a module that keeps its
// memory private is rejected at load time.
func TestLoadModuleWithoutMemoryExport(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	// Valid but empty module: no memory export.
	emptyModule := []byte{
		0x00, 0x61, 0x73, 0x6d,
		0x01, 0x00, 0x00, 0x00,
	}

	_, err = loader.LoadModuleFromMemory(ctx, "no-memory", emptyModule)
	if err == nil {
		t.Fatal("Expected missing export error")
	}
	if _, ok := err.(*MissingExportError); !ok {
		t.Errorf("Error type = %T, want *MissingExportError", err)
	}

	// The rejected module must not be cached.
	if _, ok := runtime.GetCompiledModule("no-memory"); ok {
		t.Error("Rejected module should not be cached")
	}
}

// TestHostFunctions tests host function creation.
func TestHostFunctions(t *testing.T) {
	logger := zaptest.NewLogger(t)

	hostFuncs := NewHostFunctions(logger)
	if hostFuncs == nil {
		t.Fatal("HostFunctions is nil")
	}

	if hostFuncs.logger == nil {
		t.Error("Logger not initialized")
	}
}

// TestInstantiateExportsMemory instantiates a module that exports one
// page of memory and reads it back through the bounds-checked wrapper.
func TestInstantiateExportsMemory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	loader := NewModuleLoader(runtime, logger)

	if _, err := loader.LoadModuleFromMemory(ctx, "memory-module", memoryModuleBytes()); err != nil {
		t.Fatalf("Failed to load module: %v", err)
	}

	hostFuncs := NewHostFunctions(logger)
	instanceMgr := NewInstanceManager(runtime, hostFuncs, logger)

	instance, err := instanceMgr.Instantiate(ctx, &InstanceConfig{
		ModuleName: "memory-module",
	})
	if err != nil {
		t.Fatalf("Failed to instantiate: %v", err)
	}

	if _, ok := runtime.GetInstance(instance.ID); !ok {
		t.Error("Instance should be tracked while live")
	}

	lm, err := instance.Memory()
	if err != nil {
		t.Fatalf("Memory not exported: %v", err)
	}

	mem := NewMemory(lm)
	if err := mem.Write(0, []byte{0x78, 0x56, 0x34, 0x12}); err != nil {
		t.Fatalf("Failed to write to memory: %v", err)
	}

	data, err := mem.Read(0, 4)
	if err != nil {
		t.Fatalf("Failed to read from memory: %v", err)
	}
	if len(data) != 4 || data[0] != 0x78 {
		t.Errorf("Read back %v, want [78 56 34 12]", data)
	}

	// An export the module does not have resolves to a typed error.
	if _, err := instance.Function("server_config_new_mail", sigProcedure); err == nil {
		t.Error("Expected missing export error")
	}

	// Closing drops the instance from runtime tracking.
	if err := instance.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, ok := runtime.GetInstance(instance.ID); ok {
		t.Error("Closed instance should be dropped from tracking")
	}
}
