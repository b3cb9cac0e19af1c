package config

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the configuration file does not exist.
var ErrNotFound = errors.New("config file not found")

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError wraps an error with the configuration path it belongs to.
type ConfigError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
