// Package cmd provides CLI commands for Beacon.
//
// Commands:
//   - ingest: Chunk, embed, and index documents into the vector store
//   - query: Retrieve assembled context and citations for a question
//   - stats: Show index statistics
//
// Signal handling and graceful shutdown are implemented
// for all commands via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/logic25/beacon-sub000/internal/log"
)

// Execute is the main entry point for the Beacon CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "ingest":
		return runIngest(os.Args[2:])
	case "query":
		return runQuery(os.Args[2:])
	case "stats":
		return runStats()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Beacon - NYC real-estate knowledge retrieval")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  beacon ingest <path> [--type <doc type>]  Index a file or directory")
	fmt.Println("  beacon query <question>                   Retrieve context and citations")
	fmt.Println("  beacon stats                              Show index statistics")
	fmt.Println("  beacon --version                          Show version information")
	fmt.Println("  beacon --help                             Show this help")
	fmt.Println()
	fmt.Println("Query flags:")
	fmt.Println("  --top-k <n>        Number of chunks to retrieve (default from config)")
	fmt.Println("  --type <doc type>  Restrict search to one document type")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required with the gemini provider (default)")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* config values")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
