package builder

import (
	"time"

	"github.com/forgecss/forge-ls/internal/builder/config"
	"github.com/forgecss/forge-ls/internal/tokens"
)

// Context is the product of a successful builder setup: the parsed
// configuration plus the design tokens extracted from it. A Context is
// immutable once published; builders replace the whole value on rebuild.
type Context struct {
	// ConfigPath is the configuration file this context was built from.
	ConfigPath string

	// Config is the decoded configuration.
	Config *config.Config

	// Tokens holds the extracted token collection.
	Tokens *tokens.Collection

	// BuiltAt records when the setup completed.
	BuiltAt time.Time
}

// TokenNames returns the extracted token names with the configured
// prefix and separator applied.
func (c *Context) TokenNames() []string {
	names := c.Tokens.Names()
	if c.Config == nil || c.Config.Prefix == "" {
		return names
	}

	sep := c.Config.Separator
	if sep == "" {
		sep = "."
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = c.Config.Prefix + sep + name
	}
	return out
}
