// Package config loads and validates Forge configuration files.
//
// A Forge project is described by a forge.config file in JSON, YAML, or
// TOML form. Loaders parse the raw file into a generic map, the schema
// validator checks its shape, and Decode turns it into a typed Config.
package config

import (
	"path/filepath"
	"strings"
)

// Loader is the interface for configuration file loaders.
type Loader interface {
	// Load reads and parses the configuration file into a map.
	// Returns nil, nil if the file does not exist.
	Load() (map[string]any, error)

	// Path returns the path this loader reads from.
	Path() string
}

// FileNames are the recognized configuration file names, in precedence
// order. When several exist in the same directory the earliest wins.
var FileNames = []string{
	"forge.config.json",
	"forge.config.yaml",
	"forge.config.yml",
	"forge.config.toml",
}

// IsConfigFile reports whether path names a Forge configuration file.
func IsConfigFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range FileNames {
		if base == name {
			return true
		}
	}
	return false
}

// Precedence returns the precedence rank of a configuration file name.
// Lower ranks win; unknown names rank last.
func Precedence(path string) int {
	base := filepath.Base(path)
	for i, name := range FileNames {
		if base == name {
			return i
		}
	}
	return len(FileNames)
}

// ForPath returns the loader matching the file's extension.
func ForPath(path string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return NewJSONLoader(path), nil
	case ".yaml", ".yml":
		return NewYAMLLoader(path), nil
	case ".toml":
		return NewTOMLLoader(path), nil
	default:
		return nil, &ParseError{Path: path, Message: "unsupported config format"}
	}
}

// Load reads, validates, and decodes the configuration file at path.
func Load(path string) (*Config, error) {
	loader, err := ForPath(path)
	if err != nil {
		return nil, err
	}

	raw, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}

	if err := Validate(raw); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg, err := Decode(raw)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	cfg.Path = path
	cfg.applyDefaults()
	return cfg, nil
}
