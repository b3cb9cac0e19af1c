package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLLoader loads configuration from YAML files.
type YAMLLoader struct {
	path string
}

// NewYAMLLoader creates a YAML loader for the given path.
func NewYAMLLoader(path string) *YAMLLoader {
	return &YAMLLoader{path: path}
}

// Path returns the path this loader reads from.
func (l *YAMLLoader) Path() string { return l.path }

// Load reads and parses the configuration file.
func (l *YAMLLoader) Load() (map[string]any, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: l.path, Message: err.Error(), Err: err}
	}
	return raw, nil
}
