// Package index embeds document chunks and serves nearest-neighbor search
// over them. The Client interface is the seam between retrieval logic and
// the backing vector store; Store implements it on PostgreSQL + pgvector.
package index

import (
	"context"
	"time"

	"github.com/logic25/beacon-sub000/internal/chunk"
)

// SearchResult is one scored match from the index.
type SearchResult struct {
	ChunkID    string
	Score      float64 // cosine similarity, clamped to [0, 1]
	Text       string
	SourceFile string
	DocType    string
	PageNumber int // 0 when unknown
	Metadata   map[string]string
}

// Stats summarizes the indexed corpus.
type Stats struct {
	TotalChunks int
	ByType      map[string]int
}

// Client is the index as retrieval and ingestion consume it.
type Client interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Upsert indexes the chunks, replacing rows with matching IDs.
	// Returns the number of chunks written.
	Upsert(ctx context.Context, chunks []chunk.Chunk) (int, error)

	// Search returns the nearest chunks to the query, best first.
	// Zero matches is an empty slice, not an error.
	Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error)
}

// SearchOption configures a single Search call.
type SearchOption func(*SearchConfig)

// SearchConfig is the resolved set of search options. Client
// implementations (and their test doubles) build it with
// NewSearchConfig.
type SearchConfig struct {
	TopK         int
	DocType      string
	Jurisdiction string
	Timeout      time.Duration
}

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *SearchConfig) {
		if k > 0 {
			c.TopK = k
		}
	}
}

// WithTypeFilter restricts results to one document type.
func WithTypeFilter(docType string) SearchOption {
	return func(c *SearchConfig) {
		c.DocType = docType
	}
}

// WithJurisdiction restricts results to sources from one jurisdiction.
func WithJurisdiction(name string) SearchOption {
	return func(c *SearchConfig) {
		c.Jurisdiction = name
	}
}

// WithTimeout bounds the whole Search call, embedding included.
// Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *SearchConfig) {
		if d > 0 {
			c.Timeout = d
		}
	}
}

// NewSearchConfig applies the options over the defaults.
func NewSearchConfig(opts ...SearchOption) *SearchConfig {
	cfg := &SearchConfig{
		TopK:    5,
		Timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
