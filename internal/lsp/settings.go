package lsp

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// configSection is the workspace configuration section the server owns.
const configSection = "forge"

// Settings are the editor-side preferences for the server, fetched via
// workspace/configuration.
type Settings struct {
	ColorPreview bool     `json:"colorPreview"`
	Hovers       bool     `json:"hovers"`
	Completions  bool     `json:"completions"`
	Diagnostics  bool     `json:"diagnostics"`
	RemToPixels  bool     `json:"remToPixels"`
	RootFontSize int      `json:"rootFontSize"`
	ExcludeDirs  []string `json:"excludeDirs"`
}

// DefaultSettings is used when the client does not support
// workspace/configuration or a fetch fails.
func DefaultSettings() Settings {
	return Settings{
		ColorPreview: true,
		Hovers:       true,
		Completions:  true,
		Diagnostics:  true,
		RemToPixels:  true,
		RootFontSize: 16,
	}
}

// settingsCache holds the last fetched settings. The cache is filled at
// most once per invalidation cycle so a burst of requests costs one
// round trip to the editor.
type settingsCache struct {
	log zerolog.Logger

	mu        sync.Mutex
	supported bool
	current   *Settings
}

func newSettingsCache(log zerolog.Logger) *settingsCache {
	return &settingsCache{log: log}
}

// setSupported records whether the client handles
// workspace/configuration requests. Called once during initialize.
func (c *settingsCache) setSupported(supported bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supported = supported
}

// get returns the cached settings, fetching them through fetch when the
// cache is empty. Clients without configuration support always get
// defaults; a failed fetch caches defaults until the next invalidation.
func (c *settingsCache) get(fetch func() (Settings, error)) Settings {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.supported {
		return DefaultSettings()
	}
	if c.current != nil {
		return *c.current
	}

	settings, err := fetch()
	if err != nil {
		c.log.Warn().Err(err).Msg("settings fetch failed, using defaults")
		settings = DefaultSettings()
	}
	c.current = &settings
	return settings
}

// invalidate drops the cached settings so the next access re-fetches.
func (c *settingsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// fetchSettings builds a fetcher that pulls the forge section through a
// workspace/configuration request on the given connection.
func fetchSettings(ctx *glsp.Context) func() (Settings, error) {
	return func() (Settings, error) {
		section := configSection
		params := protocol.ConfigurationParams{
			Items: []protocol.ConfigurationItem{{Section: &section}},
		}

		var results []Settings
		ctx.Call(protocol.ServerWorkspaceConfiguration, params, &results)
		if len(results) == 0 {
			return Settings{}, ErrNoSettings
		}

		settings := results[0]
		if settings.RootFontSize <= 0 {
			settings.RootFontSize = DefaultSettings().RootFontSize
		}
		return settings, nil
	}
}
