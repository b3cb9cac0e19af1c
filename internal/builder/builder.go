// Package builder turns a Forge configuration file into an in-memory
// context holding the parsed config and its extracted design tokens.
//
// A Builder is created per configuration path. Setup loads and validates
// the configuration, merges token sources, and resolves aliases; the
// resulting Context is replaced atomically on each successful setup so
// readers never observe a partially built one. The Registry maps document
// paths to their nearest enclosing configuration.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/forgecss/forge-ls/internal/builder/config"
	"github.com/forgecss/forge-ls/internal/tokens"
)

// Builder loads one Forge configuration and maintains its context.
type Builder struct {
	id         string
	configPath string
	log        zerolog.Logger

	mu  sync.RWMutex
	ctx *Context
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// New creates a builder for the given configuration path.
// The path is made absolute; no I/O happens until Setup.
func New(configPath string, opts ...Option) *Builder {
	if abs, err := filepath.Abs(configPath); err == nil {
		configPath = abs
	}

	b := &Builder{
		id:         uuid.NewString(),
		configPath: configPath,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().
		Str("builder", b.id[:8]).
		Str("config", b.configPath).
		Logger()
	return b
}

// ID returns the builder's instance id.
func (b *Builder) ID() string { return b.id }

// ConfigPath returns the configuration file path this builder owns.
func (b *Builder) ConfigPath() string { return b.configPath }

// Dir returns the directory containing the configuration file.
func (b *Builder) Dir() string { return filepath.Dir(b.configPath) }

// Context returns the current context, or nil before the first
// successful Setup.
func (b *Builder) Context() *Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// Setup loads the configuration and extracts its tokens.
// On failure the previous context, if any, is left in place.
func (b *Builder) Setup(ctx context.Context) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return err
	}

	cfg, err := config.Load(b.configPath)
	if err != nil {
		return &SetupError{Path: b.configPath, Err: err}
	}

	collection := tokens.NewCollection()

	if len(cfg.Tokens) > 0 {
		toks, err := tokens.Flatten(b.configPath, cfg.Tokens)
		if err != nil {
			return &SetupError{Path: b.configPath, Err: err}
		}
		collection.AddAll(toks)
	}

	for _, file := range cfg.ResolvedTokenFiles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		toks, err := loadTokenFile(file)
		if err != nil {
			return &SetupError{Path: b.configPath, Err: err}
		}
		collection.AddAll(toks)
	}

	if err := collection.ResolveAliases(); err != nil {
		// Unresolvable aliases degrade to empty values; the context is
		// still usable for name completion and navigation.
		b.log.Warn().Err(err).Msg("token aliases left unresolved")
	}

	built := &Context{
		ConfigPath: b.configPath,
		Config:     cfg,
		Tokens:     collection,
		BuiltAt:    time.Now(),
	}

	b.mu.Lock()
	b.ctx = built
	b.mu.Unlock()

	b.log.Info().
		Int("tokens", collection.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("builder setup complete")
	return nil
}

// loadTokenFile parses a standalone token source file (JSON or YAML)
// into flat tokens.
func loadTokenFile(path string) ([]tokens.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var tree map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("token file %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("token file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("token file %s: unsupported format", path)
	}

	return tokens.Flatten(path, tree)
}
