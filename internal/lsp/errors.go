package lsp

import "errors"

// Standard errors returned by the protocol layer.
var (
	// ErrNotInitialized indicates a request arrived before initialize.
	ErrNotInitialized = errors.New("server not initialized")

	// ErrNoActiveDocument indicates no active document is known.
	ErrNoActiveDocument = errors.New("no active document")

	// ErrInvalidParams indicates a custom method received malformed
	// parameters.
	ErrInvalidParams = errors.New("invalid params")

	// ErrNoSettings indicates a workspace/configuration request came
	// back empty.
	ErrNoSettings = errors.New("no settings returned")
)
