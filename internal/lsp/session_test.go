package lsp

import (
	"testing"
	"time"

	"github.com/forgecss/forge-ls/internal/builder"
)

func TestSessionActiveDocument(t *testing.T) {
	s := NewSession()
	if got := s.ActiveDocument(); got != "" {
		t.Errorf("new session active document = %q, want empty", got)
	}

	s.SetActiveDocument("/ws/src/app.css")
	if got := s.ActiveDocument(); got != "/ws/src/app.css" {
		t.Errorf("active document = %q", got)
	}
}

func TestSessionContext(t *testing.T) {
	s := NewSession()
	if s.Context() != nil {
		t.Fatal("new session has a context")
	}

	ctx := &builder.Context{ConfigPath: "/ws/forge.config.json", BuiltAt: time.Now()}
	s.SetContext(ctx)
	if got := s.Context(); got != ctx {
		t.Errorf("context = %v, want %v", got, ctx)
	}

	s.SetContext(nil)
	if s.Context() != nil {
		t.Error("context not cleared")
	}
}

func TestSessionReset(t *testing.T) {
	s := NewSession()
	s.SetActiveDocument("/ws/src/app.css")
	s.SetContext(&builder.Context{ConfigPath: "/ws/forge.config.json"})

	s.Reset()

	if s.ActiveDocument() != "" || s.Context() != nil || s.Sync() != nil {
		t.Error("reset left state behind")
	}
}
