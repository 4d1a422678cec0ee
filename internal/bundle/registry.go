package bundle

import (
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded bundles.
type Registry struct {
	sync.RWMutex
	bundles map[string]*Bundle // name -> bundle
	logger  *zap.Logger
}

// NewRegistry creates a new bundle registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		bundles: make(map[string]*Bundle),
		logger:  logger.With(zap.String("component", "bundle-registry")),
	}
}

// Register adds a bundle to the registry.
func (r *Registry) Register(b *Bundle) error {
	r.Lock()
	defer r.Unlock()

	name := b.Manifest.Name
	if _, exists := r.bundles[name]; exists {
		return &AlreadyRegisteredError{BundleName: name}
	}

	r.bundles[name] = b

	r.logger.Info("bundle registered",
		zap.String("name", name),
		zap.String("version", b.Manifest.Version),
	)

	return nil
}

// Get retrieves a bundle by name.
func (r *Registry) Get(name string) (*Bundle, bool) {
	r.RLock()
	defer r.RUnlock()

	b, ok := r.bundles[name]
	return b, ok
}

// List returns all registered bundles.
func (r *Registry) List() []*Bundle {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Bundle, 0, len(r.bundles))
	for _, b := range r.bundles {
		result = append(result, b)
	}
	return result
}

// Unregister removes a bundle from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.bundles[name]; !ok {
		return
	}
	delete(r.bundles, name)

	r.logger.Info("bundle unregistered", zap.String("name", name))
}

// Count returns the number of registered bundles.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.bundles)
}
