package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/internal/wasm"
)

// Loader handles loading bundles from disk.
type Loader struct {
	runtime      *wasm.Runtime
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new bundle loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		runtime:      runtime,
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "bundle-loader")),
	}
}

// LoadBundle loads a single bundle from a directory.
func (l *Loader) LoadBundle(ctx context.Context, dir string) (*Bundle, error) {
	l.logger.Debug("loading bundle", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("loading bundle",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
	)

	// Compile Wasm module (uses internal caching)
	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, manifest.WasmPath())
	if err != nil {
		return nil, &LoadError{
			BundleName: manifest.Name,
			Err:        err,
		}
	}

	bundle := &Bundle{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("bundle loaded",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return bundle, nil
}

// Discover scans directories for bundles.
func (l *Loader) Discover(ctx context.Context, paths []string) ([]*Bundle, error) {
	var bundles []*Bundle
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("scanning bundle directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("bundle path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		// Try to load each subdirectory as a bundle
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			dir := filepath.Join(basePath, entry.Name())

			b, err := l.LoadBundle(ctx, dir)
			if err != nil {
				l.logger.Error("failed to load bundle",
					zap.String("dir", dir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			bundles = append(bundles, b)
		}
	}

	// Partial failures are tolerated as long as something loaded.
	if len(bundles) > 0 && len(errs) > 0 {
		l.logger.Warn("some bundles failed to load",
			zap.Int("loaded", len(bundles)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(bundles) == 0 {
		return nil, &NoneFoundError{Paths: paths}
	}

	return bundles, nil
}
