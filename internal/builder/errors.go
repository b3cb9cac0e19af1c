package builder

import (
	"errors"
	"fmt"
)

// Standard errors returned by the builder layer.
var (
	// ErrNoBuilder indicates no builder owns the given path.
	ErrNoBuilder = errors.New("no builder for path")

	// ErrNoContext indicates the builder has not completed a setup yet.
	ErrNoContext = errors.New("builder has no context")
)

// SetupError wraps a failure to set up one configuration.
type SetupError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SetupError) Unwrap() error {
	return e.Err
}
