package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/logic25/beacon-sub000/internal/app"
	"github.com/logic25/beacon-sub000/internal/config"
	"github.com/logic25/beacon-sub000/internal/doctype"
	"github.com/logic25/beacon-sub000/internal/ingest"
)

// runIngest indexes a file or directory into the vector store.
// Usage: beacon ingest <path> [--type <doc type>]
func runIngest(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: beacon ingest <path> [--type <doc type>]")
	}
	path := args[0]

	var docType doctype.Type
	if len(args) >= 3 && args[1] == "--type" {
		docType = doctype.Parse(args[2])
		if docType == doctype.Generic && args[2] != string(doctype.Generic) {
			slog.Warn("unrecognized document type, using generic", "type", args[2])
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("app close error", "error", closeErr)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading ingest path: %w", err)
	}

	var result ingest.Result
	if info.IsDir() {
		result, err = a.Ingestor.Directory(ctx, path)
	} else {
		result, err = a.Ingestor.File(ctx, path, docType)
	}

	printIngestResult(result)

	var partial *ingest.PartialError
	if errors.As(err, &partial) {
		// Partial failures are reported but do not discard the indexed work
		fmt.Printf("\nWarning: %v\n", partial)
		return nil
	}
	return err
}

func printIngestResult(r ingest.Result) {
	fmt.Printf("Ingest run %s finished in %s\n", r.RunID, r.Duration.Round(10*time.Millisecond))
	fmt.Printf("  Files added:    %d\n", r.FilesAdded)
	fmt.Printf("  Files skipped:  %d\n", r.FilesSkipped)
	fmt.Printf("  Files failed:   %d\n", r.FilesFailed)
	fmt.Printf("  Chunks indexed: %d\n", r.ChunksUpserted)
}
