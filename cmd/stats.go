package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sort"
	"syscall"

	"github.com/logic25/beacon-sub000/internal/app"
	"github.com/logic25/beacon-sub000/internal/config"
)

// runStats prints index statistics and the loaded correction count.
func runStats() error {
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

	stats, err := a.Index.Stats(ctx)
	if err != nil {
		return fmt.Errorf("reading index stats: %w", err)
	}

	fmt.Printf("Indexed chunks: %d\n", stats.TotalChunks)

	if len(stats.ByType) > 0 {
		types := make([]string, 0, len(stats.ByType))
		for t := range stats.ByType {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Println("By document type:")
		for _, t := range types {
			fmt.Printf("  %-28s %d\n", t, stats.ByType[t])
		}
	}

	fmt.Printf("Corrections loaded: %d\n", a.Corrections.Count())
	return nil
}
