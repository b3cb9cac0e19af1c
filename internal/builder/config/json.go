package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// JSONLoader loads configuration from JSON files.
type JSONLoader struct {
	path string
}

// NewJSONLoader creates a JSON loader for the given path.
func NewJSONLoader(path string) *JSONLoader {
	return &JSONLoader{path: path}
}

// Path returns the path this loader reads from.
func (l *JSONLoader) Path() string { return l.path }

// Load reads and parses the configuration file.
func (l *JSONLoader) Load() (map[string]any, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Path: l.path, Message: err.Error(), Err: err}
	}
	return raw, nil
}
