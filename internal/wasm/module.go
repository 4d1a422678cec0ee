package wasm

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/pkg/schema"
)

// ModuleLoader compiles policy modules and fronts the runtime's
// compilation cache.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a new module loader.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ModuleSource yields the raw bytecode of one policy module.
type ModuleSource interface {
	// Bytes returns the Wasm bytecode.
	Bytes() ([]byte, error)

	// Name identifies the module; it doubles as the cache key.
	Name() string
}

// FileModuleSource reads a policy module from disk.
type FileModuleSource struct {
	Path string
}

func (f *FileModuleSource) Bytes() ([]byte, error) { return os.ReadFile(f.Path) }

func (f *FileModuleSource) Name() string { return f.Path }

// MemoryModuleSource serves bytecode already held in memory.
type MemoryModuleSource struct {
	ModuleName string
	Data       []byte
}

func (m *MemoryModuleSource) Bytes() ([]byte, error) { return m.Data, nil }

func (m *MemoryModuleSource) Name() string { return m.ModuleName }

// LoadModule compiles a policy module, reusing the cached compilation
// when the same source was loaded before. A module that does not export
// its linear memory can never carry argument or result buffers, so it
// is rejected here instead of at first instantiation.
func (l *ModuleLoader) LoadModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	if cached, ok := l.runtime.GetCompiledModule(source.Name()); ok {
		l.logger.Debug("module cache hit",
			zap.String("module", source.Name()),
		)
		return cached, nil
	}

	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", source.Name(), err)
	}

	l.logger.Info("compiling policy module",
		zap.String("module", source.Name()),
		zap.Int("size_bytes", len(wasmBytes)),
	)

	startTime := time.Now()

	// wazero.CompileModule decodes and validates the Wasm binary.
	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{
			ModuleName: source.Name(),
			Err:        err,
		}
	}

	if _, ok := compiled.ExportedMemories()[schema.ExportMemory]; !ok {
		_ = compiled.Close(ctx)
		return nil, &MissingExportError{Export: schema.ExportMemory}
	}

	compiledModule := &CompiledModule{
		Module:     compiled,
		Name:       source.Name(),
		Source:     source.Name(),
		SizeBytes:  int64(len(wasmBytes)),
		CompiledAt: time.Now().Unix(),
	}
	l.runtime.StoreCompiledModule(compiledModule)

	l.logger.Info("module compiled",
		zap.String("module", source.Name()),
		zap.Duration("duration", time.Since(startTime)),
	)

	return compiledModule, nil
}

// LoadModuleFromFile is a convenience function for loading from a file path.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, path string) (*CompiledModule, error) {
	return l.LoadModule(ctx, &FileModuleSource{Path: path})
}

// LoadModuleFromMemory loads from a byte slice.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.LoadModule(ctx, &MemoryModuleSource{ModuleName: name, Data: data})
}
