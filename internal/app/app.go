// Package app provides application initialization and dependency injection.
//
// App is the core container that wires the embedding provider, the
// PostgreSQL vector index, the corrections overlay, and the retrieval
// and ingest services. Construct with Setup and release with Close.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logic25/beacon-sub000/internal/config"
	"github.com/logic25/beacon-sub000/internal/corrections"
	"github.com/logic25/beacon-sub000/internal/index"
	"github.com/logic25/beacon-sub000/internal/ingest"
	"github.com/logic25/beacon-sub000/internal/retrieval"
)

// App is the core application container.
type App struct {
	// Configuration
	Config *config.Config

	// Core services
	Genkit      *genkit.Genkit
	Embedder    ai.Embedder
	DBPool      *pgxpool.Pool
	Index       *index.Store
	Corrections *corrections.Store
	Retriever   *retrieval.Retriever
	Ingestor    *ingest.Ingestor

	// Lifecycle management
	otelCleanup func()
	dbCleanup   func()
	cancel      context.CancelFunc
}

// Close gracefully shuts down all resources.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	slog.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
		slog.Info("database pool closed")
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
