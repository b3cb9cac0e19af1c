// Package workspace discovers Forge configuration files under editor
// workspace folders and drives their concurrent setup.
package workspace

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/forgecss/forge-ls/internal/builder/config"
)

// DefaultExcludes are directory names never descended into during
// discovery. Settings may extend this list per workspace.
var DefaultExcludes = []string{
	"node_modules",
	".git",
	".hg",
	"vendor",
	"dist",
	"build",
	"forge-out",
}

// defaultSetupLimit bounds how many configurations are set up at once
// within one workspace folder.
const defaultSetupLimit = 4

// SetupFunc performs the asynchronous setup of one discovered
// configuration.
type SetupFunc func(ctx context.Context, configPath string) error

// Scanner discovers configuration files under a workspace root.
type Scanner struct {
	excludes   map[string]bool
	setupLimit int
	log        zerolog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithExcludes adds directory names to skip during discovery.
func WithExcludes(names ...string) ScannerOption {
	return func(s *Scanner) {
		for _, n := range names {
			if n != "" {
				s.excludes[n] = true
			}
		}
	}
}

// WithSetupLimit caps concurrent configuration setups.
func WithSetupLimit(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.setupLimit = n
		}
	}
}

// WithLogger sets the scanner's logger.
func WithLogger(log zerolog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.log = log
	}
}

// NewScanner creates a scanner with the default exclusion list.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		excludes:   make(map[string]bool, len(DefaultExcludes)),
		setupLimit: defaultSetupLimit,
		log:        zerolog.Nop(),
	}
	for _, n := range DefaultExcludes {
		s.excludes[n] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Discover walks root and returns the configuration file paths found,
// sorted for determinism. Excluded directories are not descended into.
// Unreadable subtrees are skipped, not fatal.
func (s *Scanner) Discover(root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var found []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			s.log.Debug().Str("path", path).Err(err).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != absRoot && s.excludes[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if config.IsConfigFile(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// SetupAll discovers configurations under root and runs setup for each
// concurrently. A failed setup is logged and swallowed so one broken
// configuration cannot block its siblings.
//
// The returned Sync is non-nil only when exactly one configuration was
// found; single-config workspaces can use it to wait until that
// configuration's setup finished. The returned paths are the discovered
// configuration files.
func (s *Scanner) SetupAll(ctx context.Context, root string, setup SetupFunc) ([]string, *Sync, error) {
	paths, err := s.Discover(root)
	if err != nil {
		return nil, nil, err
	}

	var handle *Sync
	if len(paths) == 1 {
		handle = newSync()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.setupLimit)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			defer func() {
				if handle != nil {
					handle.resolve()
				}
			}()
			if err := setup(gctx, path); err != nil {
				s.log.Error().Str("config", path).Err(err).Msg("config setup failed")
			}
			return nil
		})
	}

	// Setups never report errors into the group, so Wait only observes
	// context cancellation.
	if err := g.Wait(); err != nil {
		return paths, handle, err
	}
	return paths, handle, nil
}
