package bundle

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Manifest represents a bundle's manifest.yaml structure. A bundle is
// one policy module plus the configuration file delivered to it during
// setup.
type Manifest struct {
	Name    string     `yaml:"name"`
	Version string     `yaml:"version"`
	Wasm    WasmConfig `yaml:"wasm"`
	Config  string     `yaml:"config"`
	Author  string     `yaml:"author"`
	License string     `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"` // KB
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.yaml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	// Validate Wasm file exists
	wasmPath := m.WasmPath()
	if _, err := os.Stat(wasmPath); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	// The config file is optional; when named it must exist, since the
	// module receives its path at setup and a dangling reference would
	// only surface much later inside the guest.
	if m.Config != "" {
		if _, err := os.Stat(m.ConfigPath()); os.IsNotExist(err) {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "config",
				Message: "config file does not exist: " + m.Config,
			}
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, "manifest.yaml")
}

// WasmPath returns the absolute path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// ConfigPath returns the path handed to the module during setup, or ""
// when the bundle carries no configuration file.
func (m *Manifest) ConfigPath() string {
	if m.Config == "" {
		return ""
	}
	return filepath.Join(m.dir, m.Config)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
