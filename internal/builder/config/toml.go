package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader loads configuration from TOML files.
type TOMLLoader struct {
	path string
}

// NewTOMLLoader creates a TOML loader for the given path.
func NewTOMLLoader(path string) *TOMLLoader {
	return &TOMLLoader{path: path}
}

// Path returns the path this loader reads from.
func (l *TOMLLoader) Path() string { return l.path }

// Load reads and parses the configuration file.
func (l *TOMLLoader) Load() (map[string]any, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: l.path, Message: err.Error(), Err: err}
	}
	return raw, nil
}
