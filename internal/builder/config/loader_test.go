package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "forge.config.json",
			content: `{
				"prefix": "app",
				"tokenFiles": ["tokens/base.json"],
				"tokens": {"color": {"primary": {"value": "#336699"}}}
			}`,
		},
		{
			name: "yaml",
			file: "forge.config.yaml",
			content: "prefix: app\ntokenFiles:\n  - tokens/base.json\ntokens:\n  color:\n    primary:\n      value: \"#336699\"\n",
		},
		{
			name: "toml",
			file: "forge.config.toml",
			content: "prefix = \"app\"\ntokenFiles = [\"tokens/base.json\"]\n\n[tokens.color.primary]\nvalue = \"#336699\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeFile(t, dir, tt.file, tt.content)

			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Prefix != "app" {
				t.Errorf("Prefix = %q, want %q", cfg.Prefix, "app")
			}
			if cfg.Separator != "." {
				t.Errorf("Separator default = %q, want %q", cfg.Separator, ".")
			}
			if cfg.Path != path {
				t.Errorf("Path = %q, want %q", cfg.Path, path)
			}

			files := cfg.ResolvedTokenFiles()
			want := filepath.Join(dir, "tokens", "base.json")
			if len(files) != 1 || files[0] != want {
				t.Errorf("ResolvedTokenFiles = %v, want [%s]", files, want)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "forge.config.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoad_ParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "forge.config.json", "{not json")

	_, err := Load(path)
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Path != path {
		t.Errorf("ParseError.Path = %q", perr.Path)
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "forge.config.json", `{"prefix": 42}`)

	_, err := Load(path)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "forge.config.json", `{"prefixx": "typo"}`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected schema error for unknown key")
	}
}

func TestForPath_Unsupported(t *testing.T) {
	if _, err := ForPath("/p/forge.config.ini"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestIsConfigFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/a/b/forge.config.json", true},
		{"/a/b/forge.config.yaml", true},
		{"/a/b/forge.config.yml", true},
		{"/a/b/forge.config.toml", true},
		{"/a/b/forge.config.ts", false},
		{"/a/b/other.json", false},
	}
	for _, tt := range tests {
		if got := IsConfigFile(tt.path); got != tt.want {
			t.Errorf("IsConfigFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestPrecedence(t *testing.T) {
	if Precedence("/x/forge.config.json") >= Precedence("/x/forge.config.toml") {
		t.Error("json should outrank toml")
	}
	if Precedence("/x/whatever.txt") != len(FileNames) {
		t.Error("unknown names should rank last")
	}
}
