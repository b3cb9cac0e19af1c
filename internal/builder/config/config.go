package config

import (
	"encoding/json"
	"path/filepath"
)

// Config is a decoded Forge project configuration.
type Config struct {
	// Path is the absolute path of the configuration file. Populated by
	// Load, not by the file itself.
	Path string `json:"-"`

	// Prefix is prepended to emitted token names.
	Prefix string `json:"prefix,omitempty"`

	// Separator joins group segments in emitted names. Defaults to ".".
	Separator string `json:"separator,omitempty"`

	// Include and Exclude are glob patterns limiting which project files
	// the builder considers.
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`

	// OutDir is the build output directory, relative to the config file.
	OutDir string `json:"outDir,omitempty"`

	// TokenFiles are additional token source files, relative to the
	// config file. Later files override earlier ones on name collision.
	TokenFiles []string `json:"tokenFiles,omitempty"`

	// Tokens are inline token groups declared in the config itself.
	Tokens map[string]any `json:"tokens,omitempty"`
}

// Decode converts a parsed configuration map into a Config.
func Decode(raw map[string]any) (*Config, error) {
	// Round-trip through JSON so YAML and TOML trees decode identically.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills zero-valued fields with their defaults.
func (c *Config) applyDefaults() {
	if c.Separator == "" {
		c.Separator = "."
	}
	if c.OutDir == "" {
		c.OutDir = "forge-out"
	}
}

// Dir returns the directory containing the configuration file.
func (c *Config) Dir() string {
	return filepath.Dir(c.Path)
}

// ResolvedTokenFiles returns the token source paths resolved against the
// config file's directory.
func (c *Config) ResolvedTokenFiles() []string {
	out := make([]string, 0, len(c.TokenFiles))
	for _, f := range c.TokenFiles {
		if !filepath.IsAbs(f) {
			f = filepath.Join(c.Dir(), f)
		}
		out = append(out, filepath.Clean(f))
	}
	return out
}
