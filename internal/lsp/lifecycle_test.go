package lsp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func decodeInitializeParams(t *testing.T, raw string) *protocol.InitializeParams {
	t.Helper()
	var params protocol.InitializeParams
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		t.Fatalf("decode initialize params: %v", err)
	}
	return &params
}

func TestInitializeCapturesCapabilities(t *testing.T) {
	s := newTestServer(t)

	params := decodeInitializeParams(t, `{
		"capabilities": {
			"workspace": {
				"configuration": true,
				"workspaceFolders": true,
				"didChangeConfiguration": {"dynamicRegistration": true},
				"didChangeWatchedFiles": {"dynamicRegistration": true}
			}
		},
		"workspaceFolders": [{"uri": "file:///ws", "name": "ws"}],
		"initializationOptions": {"activeDocument": "file:///ws/src/app.css"}
	}`)

	result, err := s.initialize(&glsp.Context{}, params)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}

	res, ok := result.(protocol.InitializeResult)
	if !ok {
		t.Fatalf("result type %T", result)
	}
	if res.ServerInfo == nil || res.ServerInfo.Name != "forge-ls" {
		t.Errorf("server info = %+v", res.ServerInfo)
	}

	s.mu.RLock()
	caps := s.caps
	folders := s.folders
	s.mu.RUnlock()

	if !caps.configuration || !caps.workspaceFolders || !caps.dynamicConfig || !caps.dynamicWatchedFiles {
		t.Errorf("capabilities = %+v", caps)
	}
	if len(folders) != 1 || folders[0] != filepath.FromSlash("/ws") {
		t.Errorf("folders = %v", folders)
	}
	if got := s.session.ActiveDocument(); got != filepath.FromSlash("/ws/src/app.css") {
		t.Errorf("active document = %q", got)
	}
}

func TestInitializeWithoutCapabilities(t *testing.T) {
	s := newTestServer(t)

	params := decodeInitializeParams(t, `{"capabilities": {}}`)
	if _, err := s.initialize(&glsp.Context{}, params); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	s.mu.RLock()
	caps := s.caps
	s.mu.RUnlock()
	if caps.configuration || caps.dynamicWatchedFiles {
		t.Errorf("capabilities = %+v, want all false", caps)
	}
}

func TestWorkspaceRoots(t *testing.T) {
	rootURI := protocol.DocumentUri("file:///fallback")
	rootPath := "/legacy"

	tests := []struct {
		name   string
		params *protocol.InitializeParams
		want   []string
	}{
		{
			"folders win",
			decodeInitializeParams(t, `{
				"capabilities": {},
				"rootUri": "file:///fallback",
				"workspaceFolders": [{"uri": "file:///a", "name": "a"}, {"uri": "file:///b", "name": "b"}]
			}`),
			[]string{"/a", "/b"},
		},
		{
			"root uri fallback",
			&protocol.InitializeParams{RootURI: &rootURI},
			[]string{"/fallback"},
		},
		{
			"root path fallback",
			&protocol.InitializeParams{RootPath: &rootPath},
			[]string{"/legacy"},
		},
		{
			"nothing",
			&protocol.InitializeParams{},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := workspaceRoots(tt.params)
			if len(got) != len(tt.want) {
				t.Fatalf("roots = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != filepath.FromSlash(tt.want[i]) {
					t.Errorf("root[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBootstrapSingleConfigWorkspace(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, testConfig)
	if err := os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, filepath.Join(dir, "node_modules", "pkg"), testConfig)

	s := newTestServer(t)
	doc := filepath.Join(dir, "src", "app.css")
	s.session.SetActiveDocument(doc)

	rec := &notifyRecorder{}
	ctx := &glsp.Context{Notify: rec.notify}

	s.bootstrap(ctx, []string{dir}, DefaultSettings())

	if got := s.registry.Len(); got != 1 {
		t.Fatalf("registry size = %d, want 1 (excluded dirs must be skipped)", got)
	}

	handle := s.session.Sync()
	if handle == nil {
		t.Fatal("single-config workspace has no sync handle")
	}
	if !handle.Ready() {
		t.Error("sync handle not resolved after bootstrap")
	}

	if _, ok := rec.find(MethodReady); !ok {
		t.Error("ready not notified")
	}
	p, ok := rec.find(MethodConfigPath)
	if !ok {
		t.Fatal("configPath not pushed for active document")
	}
	if cp := p.(configPathResult); cp.ConfigPath != cfgPath {
		t.Errorf("pushed config path = %q, want %q", cp.ConfigPath, cfgPath)
	}
	if _, ok := rec.find(MethodTokenNames); !ok {
		t.Error("tokenNames not pushed for active document")
	}
}

func TestBootstrapMultiConfigWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, testConfig)
	sub := filepath.Join(dir, "packages", "ui")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, sub, testConfig)

	s := newTestServer(t)
	rec := &notifyRecorder{}
	s.bootstrap(&glsp.Context{Notify: rec.notify}, []string{dir}, DefaultSettings())

	if got := s.registry.Len(); got != 2 {
		t.Fatalf("registry size = %d, want 2", got)
	}
	if s.session.Sync() != nil {
		t.Error("multi-config workspace must not expose a sync handle")
	}
	if _, ok := rec.find(MethodReady); !ok {
		t.Error("ready not notified")
	}
}

func TestBootstrapSwallowsBrokenConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json`)
	sub := filepath.Join(dir, "app")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	good := writeConfig(t, sub, testConfig)

	s := newTestServer(t)
	rec := &notifyRecorder{}
	s.bootstrap(&glsp.Context{Notify: rec.notify}, []string{dir}, DefaultSettings())

	if got := s.registry.Len(); got != 1 {
		t.Fatalf("registry size = %d, want 1", got)
	}
	if _, ok := s.registry.Get(good); !ok {
		t.Error("healthy config missing from registry")
	}
	if _, ok := rec.find(MethodReady); !ok {
		t.Error("ready not notified despite a broken config")
	}
}

func TestShutdownReleasesResources(t *testing.T) {
	s := NewServer()
	if err := s.shutdown(&glsp.Context{}); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case <-s.ctx.Done():
	default:
		t.Error("server context not cancelled on shutdown")
	}
}
