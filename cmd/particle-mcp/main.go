package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/ironsheep/particle-size-mcp/internal/config"
	"github.com/ironsheep/particle-size-mcp/internal/logger"
	"github.com/ironsheep/particle-size-mcp/internal/ocr"
	"github.com/ironsheep/particle-size-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("particle-size-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--ocr-info":
			info := ocr.Info()
			fmt.Printf("OCR backend: %s\n", info.Backend)
			if info.Available {
				fmt.Printf("  Tesseract version: %s\n", info.Version)
			} else {
				fmt.Println("  Tesseract not available")
			}
			return
		case "--help", "-h", "help":
			fmt.Println("particle-size-mcp - MCP server for SEM particle size analysis")
			fmt.Println()
			fmt.Println("Usage: particle-size-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --ocr-info       Print the linked Tesseract version")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PARTICLE_MCP_CONFIG=<file>                  YAML file with default parameters")
			fmt.Println("  PARTICLE_MCP_LOG_LEVEL=debug                debug, info, warn or error")
			fmt.Println("  PARTICLE_MCP_TESSDATA_PREFIX=<dir>          Tesseract language data directory")
			fmt.Println("  PARTICLE_MCP_OCR_LANGUAGE=eng               Data bar OCR language")
			fmt.Println("  PARTICLE_MCP_HISTOGRAM_BINS=50              Default histogram bins")
			fmt.Println("  PARTICLE_MCP_BOTTOM_EXCLUSION_PERCENT=6.5   Default data bar height")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "particle-size-mcp: %v\n", err)
		os.Exit(1)
	}

	// Validate has already checked the level.
	level, _ := logger.ParseLevel(cfg.LogLevel)

	// Logs go to stderr; stdout is for the MCP protocol.
	logger.ConfigureGlobals()
	base := logger.New(os.Stderr, level)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		base = logger.NewConsole(os.Stderr, level)
	}
	log := logger.Component(base, "main")
	log.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Msg("particle MCP server starting")

	srv := server.New(cfg, base)
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
