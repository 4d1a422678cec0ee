package bundle

import (
	"time"

	"github.com/median-kliniken/kannader/internal/wasm"
)

// Bundle represents a loaded policy bundle: its manifest and the
// compiled Wasm module behind it.
type Bundle struct {
	// Manifest is the parsed bundle metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the bundle was loaded
	LoadedAt time.Time
}

// Name returns the bundle name.
func (b *Bundle) Name() string {
	return b.Manifest.Name
}

// Version returns the bundle version.
func (b *Bundle) Version() string {
	return b.Manifest.Version
}

// ConfigPath returns the configuration path delivered to the module at
// setup.
func (b *Bundle) ConfigPath() string {
	return b.Manifest.ConfigPath()
}
