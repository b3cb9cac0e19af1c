// Package lsp implements the Forge language server protocol layer on
// top of glsp, including the forge/* extension methods.
package lsp

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/forgecss/forge-ls/internal/builder"
	"github.com/forgecss/forge-ls/internal/watcher"
)

// Forge-specific protocol methods.
const (
	// MethodTokenNames pushes the active context's token names to the
	// editor after a context builds or rebuilds.
	MethodTokenNames = "forge/tokenNames"

	// MethodReady signals the editor that bootstrap finished.
	MethodReady = "forge/ready"

	// MethodActiveDocumentChanged is sent by the editor when the active
	// document changes.
	MethodActiveDocumentChanged = "forge/activeDocumentChanged"

	// MethodConfigPath answers the editor's request for the config path
	// owning a document, and pushes the path when it changes.
	MethodConfigPath = "forge/configPath"
)

// configFileGlob matches every recognized configuration file name.
const configFileGlob = "**/forge.config.{json,yaml,yml,toml}"

// clientCapabilities are the negotiated editor capability flags the
// session depends on.
type clientCapabilities struct {
	configuration       bool
	workspaceFolders    bool
	dynamicConfig       bool
	dynamicWatchedFiles bool
}

// Server is the Forge language server: it discovers configurations
// across workspace folders, keeps one builder context active for the
// current document, and relays Forge notifications to the editor.
type Server struct {
	name    string
	version string
	log     zerolog.Logger

	handler protocol.Handler
	custom  map[string]methodHandler

	session  *Session
	registry *builder.Registry
	settings *settingsCache

	mu          sync.RWMutex
	caps        clientCapabilities
	folders     []string
	initialized bool
	fsWatcher   *watcher.Watcher

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures the server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithVersion sets the version reported to the editor.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates the language server.
func NewServer(opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		name:     "forge-ls",
		version:  "dev",
		log:      zerolog.Nop(),
		session:  NewSession(),
		registry: builder.NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.settings = newSettingsCache(s.log)

	s.handler = protocol.Handler{
		Initialize:                         s.initialize,
		Initialized:                        s.onInitialized,
		Shutdown:                           s.shutdown,
		Exit:                               s.exit,
		SetTrace:                           s.setTrace,
		TextDocumentDidOpen:                s.didOpen,
		TextDocumentDidClose:               s.didClose,
		WorkspaceDidChangeConfiguration:    s.didChangeConfiguration,
		WorkspaceDidChangeWatchedFiles:     s.didChangeWatchedFiles,
		WorkspaceDidChangeWorkspaceFolders: s.didChangeWorkspaceFolders,
	}
	s.custom = map[string]methodHandler{
		MethodActiveDocumentChanged: s.handleActiveDocumentChanged,
		MethodConfigPath:            s.handleConfigPath,
	}
	return s
}

// Session returns the session state holder.
func (s *Server) Session() *Session { return s.session }

// Registry returns the builder registry.
func (s *Server) Registry() *builder.Registry { return s.registry }

// RunStdio serves the protocol over stdin/stdout until the editor
// disconnects.
func (s *Server) RunStdio() error {
	defer s.close()
	srv := glspserver.NewServer(s.dispatcher(), s.name, false)
	return srv.RunStdio()
}

// dispatcher wraps the standard protocol handler with the Forge custom
// methods.
func (s *Server) dispatcher() glsp.Handler {
	return &dispatcher{base: &s.handler, methods: s.custom}
}

// close releases server resources.
func (s *Server) close() {
	s.cancel()

	s.mu.Lock()
	w := s.fsWatcher
	s.fsWatcher = nil
	s.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
}

// methodHandler handles one Forge-specific protocol method.
type methodHandler func(ctx *glsp.Context) (any, error)

// dispatcher routes Forge methods ahead of the standard protocol
// handler; unknown methods fall through to glsp's handler.
type dispatcher struct {
	base    glsp.Handler
	methods map[string]methodHandler
}

// Handle implements glsp.Handler.
func (d *dispatcher) Handle(ctx *glsp.Context) (any, bool, bool, error) {
	if h, ok := d.methods[ctx.Method]; ok {
		result, err := h(ctx)
		return result, true, true, err
	}
	return d.base.Handle(ctx)
}

// setupConfig constructs and sets up the builder for one configuration
// path, registering it on success.
func (s *Server) setupConfig(ctx context.Context, configPath string) error {
	b, ok := s.registry.Get(configPath)
	if !ok {
		b = builder.New(configPath, builder.WithLogger(s.log))
	}
	if err := b.Setup(ctx); err != nil {
		return err
	}
	s.registry.Add(b)
	return nil
}

// resolveContext maps a document path to the context of its nearest
// enclosing configuration and caches it on the session. Returns nil
// when no builder or context is associated.
func (s *Server) resolveContext(path string) *builder.Context {
	if path == "" {
		s.session.SetContext(nil)
		return nil
	}
	bctx, err := s.registry.ContextFor(path)
	if err != nil {
		s.log.Debug().Str("document", path).Err(err).Msg("no context for document")
		s.session.SetContext(nil)
		return nil
	}
	s.session.SetContext(bctx)
	return bctx
}

// isInitialized reports whether initialize has been handled.
func (s *Server) isInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// currentSettings returns the cached or freshly fetched settings for
// this protocol context.
func (s *Server) currentSettings(ctx *glsp.Context) Settings {
	return s.settings.get(fetchSettings(ctx))
}
