package builder

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/forgecss/forge-ls/internal/builder/config"
)

// Registry tracks the builders of a session, keyed by configuration
// path, and resolves document paths to their owning configuration.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]*Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]*Builder)}
}

// Add registers a builder under its configuration path, replacing any
// previous builder for the same path.
func (r *Registry) Add(b *Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[b.ConfigPath()] = b
}

// Remove deletes the builder for a configuration path.
// Returns the removed builder, if any.
func (r *Registry) Remove(configPath string) (*Builder, bool) {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.builders[configPath]
	if ok {
		delete(r.builders, configPath)
	}
	return b, ok
}

// Get returns the builder for an exact configuration path.
func (r *Registry) Get(configPath string) (*Builder, bool) {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.builders[configPath]
	return b, ok
}

// Len returns the number of registered builders.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.builders)
}

// Paths returns all registered configuration paths, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.builders))
	for p := range r.builders {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Nearest resolves a document path to the builder whose configuration
// directory is the closest enclosing ancestor of the document. When two
// configurations share a directory the file-name precedence order breaks
// the tie. Returns false when no configuration encloses the document.
func (r *Registry) Nearest(docPath string) (*Builder, bool) {
	if abs, err := filepath.Abs(docPath); err == nil {
		docPath = abs
	}
	docPath = filepath.Clean(docPath)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		best      *Builder
		bestDepth = -1
		bestRank  int
	)
	for _, b := range r.builders {
		dir := b.Dir()
		if !encloses(dir, docPath) {
			continue
		}
		depth := strings.Count(filepath.Clean(dir), string(filepath.Separator))
		rank := config.Precedence(b.ConfigPath())
		if depth > bestDepth || (depth == bestDepth && rank < bestRank) {
			best = b
			bestDepth = depth
			bestRank = rank
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// ContextFor resolves a document path to the context of its nearest
// enclosing configuration. Returns ErrNoBuilder when no configuration
// encloses the document and ErrNoContext when the owning builder has
// not completed a setup yet.
func (r *Registry) ContextFor(docPath string) (*Context, error) {
	b, ok := r.Nearest(docPath)
	if !ok {
		return nil, ErrNoBuilder
	}
	ctx := b.Context()
	if ctx == nil {
		return nil, ErrNoContext
	}
	return ctx, nil
}

// encloses reports whether dir is an ancestor of (or equal to) the
// directory containing path.
func encloses(dir, path string) bool {
	dir = filepath.Clean(dir)
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
