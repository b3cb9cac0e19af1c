package lsp

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/forgecss/forge-ls/internal/builder"
	"github.com/forgecss/forge-ls/internal/builder/config"
	"github.com/forgecss/forge-ls/internal/watcher"
	"github.com/forgecss/forge-ls/internal/workspace"
)

// activeDocumentParams carries the forge/activeDocumentChanged payload.
type activeDocumentParams struct {
	URI string `json:"uri"`
}

// configPathParams carries the forge/configPath request payload. URI is
// optional; the active document is used when absent.
type configPathParams struct {
	URI string `json:"uri,omitempty"`
}

// configPathResult answers a forge/configPath request.
type configPathResult struct {
	ConfigPath string `json:"configPath,omitempty"`
}

// tokenNamesParams carries a forge/tokenNames push.
type tokenNamesParams struct {
	ConfigPath string   `json:"configPath"`
	Names      []string `json:"names"`
}

// handleActiveDocumentChanged tracks the editor's active document and
// re-resolves the active builder context.
func (s *Server) handleActiveDocumentChanged(ctx *glsp.Context) (any, error) {
	if !s.isInitialized() {
		return nil, ErrNotInitialized
	}

	var params activeDocumentParams
	if err := json.Unmarshal(ctx.Params, &params); err != nil {
		return nil, ErrInvalidParams
	}

	path := URIToFilePath(params.URI)
	s.session.SetActiveDocument(path)

	prev := s.session.Context()
	bctx := s.resolveContext(path)
	if bctx == prev {
		return nil, nil
	}

	if bctx != nil {
		s.pushConfigPath(ctx.Notify, bctx.ConfigPath)
		s.pushTokenNames(ctx.Notify, bctx)
	} else {
		s.pushConfigPath(ctx.Notify, "")
	}
	return nil, nil
}

// handleConfigPath answers which configuration owns a document.
func (s *Server) handleConfigPath(ctx *glsp.Context) (any, error) {
	if !s.isInitialized() {
		return nil, ErrNotInitialized
	}

	var params configPathParams
	if len(ctx.Params) > 0 {
		if err := json.Unmarshal(ctx.Params, &params); err != nil {
			return nil, ErrInvalidParams
		}
	}

	path := URIToFilePath(params.URI)
	if path == "" {
		path = s.session.ActiveDocument()
	}
	if path == "" {
		return nil, ErrNoActiveDocument
	}

	b, ok := s.registry.Nearest(path)
	if !ok {
		return configPathResult{}, nil
	}
	return configPathResult{ConfigPath: b.ConfigPath()}, nil
}

// didOpen treats a newly opened document as the active one.
func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path := URIToFilePath(string(params.TextDocument.URI))
	s.session.SetActiveDocument(path)

	prev := s.session.Context()
	if bctx := s.resolveContext(path); bctx != nil && bctx != prev {
		s.pushConfigPath(ctx.Notify, bctx.ConfigPath)
		s.pushTokenNames(ctx.Notify, bctx)
	}
	return nil
}

// didClose clears the active document when it closes.
func (s *Server) didClose(_ *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	path := URIToFilePath(string(params.TextDocument.URI))
	if s.session.ActiveDocument() == path {
		s.session.SetActiveDocument("")
		s.session.SetContext(nil)
	}
	return nil
}

// didChangeConfiguration invalidates the settings cache; the next
// settings access fetches fresh values.
func (s *Server) didChangeConfiguration(_ *glsp.Context, _ *protocol.DidChangeConfigurationParams) error {
	s.settings.invalidate()
	s.log.Debug().Msg("settings cache invalidated")
	return nil
}

// didChangeWatchedFiles reacts to config file events relayed by the
// editor.
func (s *Server) didChangeWatchedFiles(ctx *glsp.Context, params *protocol.DidChangeWatchedFilesParams) error {
	for _, change := range params.Changes {
		path := URIToFilePath(string(change.URI))
		if !config.IsConfigFile(path) {
			continue
		}
		if change.Type == protocol.FileChangeTypeDeleted {
			s.dropConfig(path)
		} else {
			s.reloadConfig(path)
		}
	}
	s.refreshActiveContext(ctx.Notify)
	return nil
}

// didChangeWorkspaceFolders discovers configurations under added
// folders and drops builders under removed ones.
func (s *Server) didChangeWorkspaceFolders(ctx *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	for _, removed := range params.Event.Removed {
		root := URIToFilePath(string(removed.URI))
		s.dropFolder(root)
	}

	for _, added := range params.Event.Added {
		root := URIToFilePath(string(added.URI))
		s.mu.Lock()
		s.folders = append(s.folders, root)
		s.mu.Unlock()

		settings := s.currentSettings(ctx)
		go func() {
			scanner := workspace.NewScanner(
				workspace.WithExcludes(settings.ExcludeDirs...),
				workspace.WithLogger(s.log),
			)
			paths, _, err := scanner.SetupAll(s.ctx, root, s.setupConfig)
			if err != nil {
				s.log.Error().Str("folder", root).Err(err).Msg("workspace discovery failed")
				return
			}
			s.watchConfigs(ctx, paths)
			s.refreshActiveContext(ctx.Notify)
		}()
	}
	return nil
}

// reloadConfig re-runs setup for a created or changed configuration.
// Failures are logged and swallowed; a failed rebuild keeps the
// previous context.
func (s *Server) reloadConfig(path string) {
	if err := s.setupConfig(s.ctx, path); err != nil {
		s.log.Error().Str("config", path).Err(err).Msg("config reload failed")
	}
}

// dropConfig removes the builder of a deleted configuration. The file
// watch, if any, stays in place so a recreated config is picked up.
func (s *Server) dropConfig(path string) {
	if b, ok := s.registry.Remove(path); ok {
		s.log.Info().Str("config", path).Msg("config removed")
		if active := s.session.Context(); active != nil && active.ConfigPath == b.ConfigPath() {
			s.session.SetContext(nil)
		}
	}
}

// watchConfig adds a configuration path to the fallback watcher when
// one is running.
func (s *Server) watchConfig(path string) {
	s.mu.RLock()
	w := s.fsWatcher
	s.mu.RUnlock()
	if w != nil {
		if err := w.Watch(path); err != nil {
			s.log.Warn().Str("config", path).Err(err).Msg("watch failed")
		}
	}
}

// unwatchConfig removes a configuration path from the fallback watcher.
func (s *Server) unwatchConfig(path string) {
	s.mu.RLock()
	w := s.fsWatcher
	s.mu.RUnlock()
	if w != nil {
		_ = w.Unwatch(path)
	}
}

// dropFolder removes every builder whose configuration lives under
// root.
func (s *Server) dropFolder(root string) {
	s.mu.Lock()
	folders := s.folders[:0]
	for _, f := range s.folders {
		if f != root {
			folders = append(folders, f)
		}
	}
	s.folders = folders
	s.mu.Unlock()

	for _, path := range s.registry.Paths() {
		if underDir(root, path) {
			s.dropConfig(path)
			s.unwatchConfig(path)
		}
	}
}

// refreshActiveContext re-resolves the active document after registry
// changes and pushes the outcome to the editor.
func (s *Server) refreshActiveContext(notify glsp.NotifyFunc) {
	doc := s.session.ActiveDocument()
	if doc == "" {
		return
	}

	prev := s.session.Context()
	bctx := s.resolveContext(doc)
	switch {
	case bctx == nil && prev != nil:
		s.pushConfigPath(notify, "")
	case bctx != nil && bctx != prev:
		s.pushConfigPath(notify, bctx.ConfigPath)
		s.pushTokenNames(notify, bctx)
	}
}

// pushTokenNames sends the context's token names to the editor.
func (s *Server) pushTokenNames(notify glsp.NotifyFunc, bctx *builder.Context) {
	if notify == nil || bctx == nil {
		return
	}
	notify(MethodTokenNames, tokenNamesParams{
		ConfigPath: bctx.ConfigPath,
		Names:      bctx.TokenNames(),
	})
}

// pushConfigPath informs the editor which configuration is active.
func (s *Server) pushConfigPath(notify glsp.NotifyFunc, configPath string) {
	if notify == nil {
		return
	}
	notify(MethodConfigPath, configPathResult{ConfigPath: configPath})
}

// underDir reports whether path is inside the directory root.
func underDir(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// onConfigFileEvent adapts local watcher events onto the same handling
// as editor-relayed watched-file notifications.
func (s *Server) onConfigFileEvent(ctx *glsp.Context) func(watcher.Event) {
	return func(event watcher.Event) {
		// A remove coalesced with a create is a replacement, not a
		// teardown.
		if event.Op.Has(watcher.OpCreate | watcher.OpWrite) {
			s.reloadConfig(event.Path)
			s.watchConfig(event.Path)
		} else if event.Op.Has(watcher.OpRemove) {
			s.dropConfig(event.Path)
		}
		s.refreshActiveContext(ctx.Notify)
	}
}
