package lsp

import (
	"sync"

	"github.com/forgecss/forge-ls/internal/builder"
	"github.com/forgecss/forge-ls/internal/workspace"
)

// Session holds the mutable per-connection state: the active document,
// the builder context borrowed for feature dispatch, and the pending
// synchronization handle of a single-config workspace. At most one
// context is active at a time.
type Session struct {
	mu sync.RWMutex

	activeDocument string
	context        *builder.Context
	sync           *workspace.Sync
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// SetActiveDocument records the active document path.
func (s *Session) SetActiveDocument(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDocument = path
}

// ActiveDocument returns the active document path, if any.
func (s *Session) ActiveDocument() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeDocument
}

// SetContext replaces the active builder context. Passing nil clears it.
func (s *Session) SetContext(ctx *builder.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = ctx
}

// Context returns the active builder context, or nil when no
// configuration owns the active document.
func (s *Session) Context() *builder.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// SetSync records the synchronization handle of a single-config
// workspace.
func (s *Session) SetSync(h *workspace.Sync) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync = h
}

// Sync returns the synchronization handle, or nil when the workspace
// did not discover exactly one configuration.
func (s *Session) Sync() *workspace.Sync {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sync
}

// Reset clears all session state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeDocument = ""
	s.context = nil
	s.sync = nil
}
