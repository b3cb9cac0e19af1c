package lsp

import (
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"golang.org/x/sync/errgroup"

	"github.com/forgecss/forge-ls/internal/builder/config"
	"github.com/forgecss/forge-ls/internal/watcher"
	"github.com/forgecss/forge-ls/internal/workspace"
)

// initialize captures the editor's capability flags and workspace
// folders. Heavy work is deferred to the initialized notification.
func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	caps := clientCapabilities{}
	if ws := params.Capabilities.Workspace; ws != nil {
		if ws.Configuration != nil {
			caps.configuration = *ws.Configuration
		}
		if ws.WorkspaceFolders != nil {
			caps.workspaceFolders = *ws.WorkspaceFolders
		}
		if ws.DidChangeConfiguration != nil && ws.DidChangeConfiguration.DynamicRegistration != nil {
			caps.dynamicConfig = *ws.DidChangeConfiguration.DynamicRegistration
		}
		if ws.DidChangeWatchedFiles != nil && ws.DidChangeWatchedFiles.DynamicRegistration != nil {
			caps.dynamicWatchedFiles = *ws.DidChangeWatchedFiles.DynamicRegistration
		}
	}

	folders := workspaceRoots(params)

	s.mu.Lock()
	s.caps = caps
	s.folders = folders
	s.initialized = true
	s.mu.Unlock()

	s.settings.setSupported(caps.configuration)

	// The editor may announce the document that was focused when the
	// extension activated.
	if opts, ok := params.InitializationOptions.(map[string]any); ok {
		if doc, ok := opts["activeDocument"].(string); ok && doc != "" {
			s.session.SetActiveDocument(URIToFilePath(doc))
		}
	}

	s.log.Info().
		Strs("folders", folders).
		Bool("configuration", caps.configuration).
		Bool("dynamicWatchedFiles", caps.dynamicWatchedFiles).
		Msg("initialize")

	capabilities := s.handler.CreateServerCapabilities()
	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    s.name,
			Version: &s.version,
		},
	}, nil
}

// onInitialized completes bootstrap: dynamic registrations, initial
// settings, and configuration discovery across workspace folders.
// Discovery runs off the dispatch goroutine so the server stays
// responsive while builders set up.
func (s *Server) onInitialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	s.mu.RLock()
	caps := s.caps
	folders := make([]string, len(s.folders))
	copy(folders, s.folders)
	s.mu.RUnlock()

	if caps.dynamicConfig {
		s.registerForConfigChanges(ctx)
	}

	settings := s.currentSettings(ctx)

	go s.bootstrap(ctx, folders, settings)
	return nil
}

// bootstrap discovers and sets up every configuration under the
// workspace folders, then signals readiness.
func (s *Server) bootstrap(ctx *glsp.Context, folders []string, settings Settings) {
	scanner := workspace.NewScanner(
		workspace.WithExcludes(settings.ExcludeDirs...),
		workspace.WithLogger(s.log),
	)

	var (
		mu         sync.Mutex
		discovered []string
	)
	g := new(errgroup.Group)
	for _, folder := range folders {
		folder := folder
		g.Go(func() error {
			paths, handle, err := scanner.SetupAll(s.ctx, folder, s.setupConfig)
			if err != nil {
				s.log.Error().Str("folder", folder).Err(err).Msg("workspace discovery failed")
				return nil
			}
			mu.Lock()
			discovered = append(discovered, paths...)
			mu.Unlock()
			if handle != nil && len(folders) == 1 {
				s.session.SetSync(handle)
			}
			return nil
		})
	}
	_ = g.Wait()

	s.watchConfigs(ctx, discovered)

	// Resolve the context of the document focused during activation.
	if doc := s.session.ActiveDocument(); doc != "" {
		if bctx := s.resolveContext(doc); bctx != nil {
			s.pushConfigPath(ctx.Notify, bctx.ConfigPath)
			s.pushTokenNames(ctx.Notify, bctx)
		}
	}

	ctx.Notify(MethodReady, nil)
	s.log.Info().Int("configs", s.registry.Len()).Msg("bootstrap complete")
}

// watchConfigs arranges change notifications for the discovered
// configuration files, preferring editor-side watchers.
func (s *Server) watchConfigs(ctx *glsp.Context, paths []string) {
	s.mu.RLock()
	dynamic := s.caps.dynamicWatchedFiles
	s.mu.RUnlock()

	if dynamic {
		s.registerForWatchedFiles(ctx)
		return
	}

	s.mu.Lock()
	if s.fsWatcher == nil {
		w, err := watcher.New(s.onConfigFileEvent(ctx),
			watcher.WithLogger(s.log),
			watcher.WithAccept(config.IsConfigFile))
		if err != nil {
			s.mu.Unlock()
			s.log.Warn().Err(err).Msg("file watcher unavailable")
			return
		}
		s.fsWatcher = w
	}
	w := s.fsWatcher
	s.mu.Unlock()

	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			s.log.Warn().Str("config", p).Err(err).Msg("watch failed")
		}
	}
}

// registerForConfigChanges registers for configuration-change
// notifications with the editor.
func (s *Server) registerForConfigChanges(ctx *glsp.Context) {
	params := protocol.RegistrationParams{
		Registrations: []protocol.Registration{{
			ID:     "forge-config-changes",
			Method: "workspace/didChangeConfiguration",
		}},
	}
	ctx.Call(protocol.ServerClientRegisterCapability, params, nil)
}

// registerForWatchedFiles asks the editor to relay config file events.
func (s *Server) registerForWatchedFiles(ctx *glsp.Context) {
	params := protocol.RegistrationParams{
		Registrations: []protocol.Registration{{
			ID:     "forge-watched-files",
			Method: "workspace/didChangeWatchedFiles",
			RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
				Watchers: []protocol.FileSystemWatcher{{GlobPattern: configFileGlob}},
			},
		}},
	}
	ctx.Call(protocol.ServerClientRegisterCapability, params, nil)
}

// shutdown handles the shutdown request.
func (s *Server) shutdown(_ *glsp.Context) error {
	s.log.Info().Msg("shutting down")
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.close()
	return nil
}

// exit handles the exit notification.
func (s *Server) exit(_ *glsp.Context) error {
	s.cancel()
	return nil
}

// setTrace handles the $/setTrace notification.
func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

// workspaceRoots extracts the workspace folder paths from initialize
// parameters, falling back to the deprecated root fields.
func workspaceRoots(params *protocol.InitializeParams) []string {
	if len(params.WorkspaceFolders) > 0 {
		roots := make([]string, 0, len(params.WorkspaceFolders))
		for _, f := range params.WorkspaceFolders {
			roots = append(roots, URIToFilePath(string(f.URI)))
		}
		return roots
	}
	if params.RootURI != nil && *params.RootURI != "" {
		return []string{URIToFilePath(string(*params.RootURI))}
	}
	if params.RootPath != nil && *params.RootPath != "" {
		return []string{*params.RootPath}
	}
	return nil
}
