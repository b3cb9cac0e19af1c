// Package main is the entry point for the Forge language server.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/tliron/commonlog"

	"github.com/forgecss/forge-ls/internal/lsp"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		showVersion bool
		logLevel    string
		logFile     string
		debug       bool
	)

	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	flag.BoolVar(&debug, "debug", false, "Enable protocol debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "forge-ls - Forge language server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: forge-ls [options]\n\n")
		fmt.Fprintf(os.Stderr, "The server speaks the language server protocol over stdio.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("forge-ls %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		return 0
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", logLevel)
		return 1
	}

	// Stdout carries the protocol; logs must never touch it.
	var out io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}
	log := zerolog.New(out).Level(level).With().Timestamp().Logger()

	verbosity := 0
	if debug {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	server := lsp.NewServer(
		lsp.WithLogger(log),
		lsp.WithVersion(version),
	)
	if err := server.RunStdio(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
