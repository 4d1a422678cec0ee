package bundle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/internal/config"
	"github.com/median-kliniken/kannader/internal/wasm"
)

// Manager manages bundle lifecycle: discovery, registration, and the
// spawning of configured policy clients.
type Manager struct {
	cfg         *config.ServerConfig
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new bundle manager.
func NewManager(
	cfg *config.ServerConfig,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctions,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "bundle-manager")),
	}
}

// LoadAll discovers and loads all bundles from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("bundles already loaded")
	}

	m.logger.Info("loading bundles",
		zap.Strings("paths", m.cfg.BundlePaths),
	)

	bundles, err := m.loader.Discover(ctx, m.cfg.BundlePaths)
	if err != nil {
		// An empty bundle directory is not fatal; the server just runs
		// without policy modules.
		if _, ok := err.(*NoneFoundError); ok {
			m.logger.Warn("no bundles found in configured paths",
				zap.Strings("paths", m.cfg.BundlePaths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, b := range bundles {
		if err := m.registry.Register(b); err != nil {
			m.logger.Error("failed to register bundle",
				zap.String("name", b.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("bundles loaded",
		zap.Int("count", len(bundles)),
	)

	return nil
}

// GetBundle retrieves a bundle by name.
func (m *Manager) GetBundle(name string) (*Bundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{BundleName: name}
	}

	return b, nil
}

// Spawn instantiates a bundle's module, resolves the boundary protocol
// against it, and runs setup with the bundle's configuration path. The
// returned client is ready for procedure calls.
func (m *Manager) Spawn(ctx context.Context, name string) (*wasm.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{BundleName: name}
	}

	// Compiled modules are cached under their wasm path.
	instance, err := m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: b.Manifest.WasmPath(),
	})
	if err != nil {
		return nil, err
	}

	client, err := wasm.NewClient(instance, m.logger)
	if err != nil {
		closeErr := instance.Close(ctx)
		if closeErr != nil {
			m.logger.Warn("failed to close rejected instance", zap.Error(closeErr))
		}
		return nil, &LoadError{BundleName: name, Err: err}
	}

	if err := client.Setup(ctx, b.ConfigPath()); err != nil {
		closeErr := instance.Close(ctx)
		if closeErr != nil {
			m.logger.Warn("failed to close unconfigured instance", zap.Error(closeErr))
		}
		return nil, &LoadError{BundleName: name, Err: err}
	}

	return client, nil
}

// Shutdown gracefully shuts down all bundles.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down bundle manager")

	// Runtime close handles instance cleanup
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("bundle manager shutdown complete")
	return nil
}

// Registry returns the bundle registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether bundles have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
