package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/logic25/beacon-sub000/internal/chunk"
)

// embedBatchSize bounds one embedding request; provider APIs reject
// larger batches.
const embedBatchSize = 100

// Store implements Client on PostgreSQL with the pgvector extension.
// Safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default.
func NewStore(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:     pool,
		embedder: embedder,
		logger:   logger,
	}
}

// Embed generates one vector per text, preserving input order. Requests
// are batched to stay under provider limits.
func (s *Store) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))

		docs := make([]*ai.Document, 0, end-start)
		for _, text := range texts[start:end] {
			docs = append(docs, ai.DocumentFromText(text, nil))
		}

		resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embed batch [%d:%d]: got %d embeddings, want %d",
				start, end, len(resp.Embeddings), end-start)
		}
		for i, emb := range resp.Embeddings {
			if len(emb.Embedding) == 0 {
				return nil, fmt.Errorf("empty embedding for text %d", start+i)
			}
			vectors = append(vectors, emb.Embedding)
		}
	}
	return vectors, nil
}

const upsertChunkSQL = `
INSERT INTO chunks (id, content, embedding, source_file, source_type, jurisdiction, page_number, sequence_index, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	content        = EXCLUDED.content,
	embedding      = EXCLUDED.embedding,
	source_file    = EXCLUDED.source_file,
	source_type    = EXCLUDED.source_type,
	jurisdiction   = EXCLUDED.jurisdiction,
	page_number    = EXCLUDED.page_number,
	sequence_index = EXCLUDED.sequence_index,
	metadata       = EXCLUDED.metadata`

// Upsert embeds the chunks and writes them in a single batch. Replays
// with the same chunk IDs overwrite the earlier rows, so re-ingesting a
// file is idempotent.
func (s *Store) Upsert(ctx context.Context, chunks []chunk.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata for chunk %q: %w", c.ID, err)
		}
		embedding := pgvector.NewVector(vectors[i])
		batch.Queue(upsertChunkSQL,
			c.ID,
			c.Text,
			embedding,
			c.SourceFile,
			string(c.DocType),
			c.Metadata["jurisdiction"],
			c.PageNumber,
			c.SequenceIndex,
			metadataJSON,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			s.logger.Warn("closing upsert batch", "error", err)
		}
	}()

	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("upsert chunk %q: %w", chunks[i].ID, err)
		}
	}

	s.logger.Debug("upserted chunks", "count", len(chunks))
	return len(chunks), nil
}

// Search embeds the query and returns the nearest chunks by cosine
// similarity, best first. An index with no matches yields an empty
// result, never an error.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	cfg := NewSearchConfig(opts...)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	vectors, err := s.Embed(queryCtx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := pgvector.NewVector(vectors[0])

	// Conditions are appended with numbered placeholders; no user text is
	// ever interpolated into the SQL.
	sql := `SELECT id, content, source_file, source_type, page_number, metadata,
	1 - (embedding <=> $1) AS similarity
FROM chunks`
	args := []any{queryVec}
	if cfg.DocType != "" {
		args = append(args, cfg.DocType)
		sql += fmt.Sprintf("\nWHERE source_type = $%d", len(args))
	}
	if cfg.Jurisdiction != "" {
		args = append(args, cfg.Jurisdiction)
		if cfg.DocType != "" {
			sql += fmt.Sprintf(" AND jurisdiction = $%d", len(args))
		} else {
			sql += fmt.Sprintf("\nWHERE jurisdiction = $%d", len(args))
		}
	}
	args = append(args, cfg.TopK)
	sql += fmt.Sprintf("\nORDER BY embedding <=> $1\nLIMIT $%d", len(args))

	rows, err := s.pool.Query(queryCtx, sql, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, cfg.TopK)
	for rows.Next() {
		var (
			r            SearchResult
			metadataJSON []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.Text, &r.SourceFile, &r.DocType,
			&r.PageNumber, &metadataJSON, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
			s.logger.Warn("unparseable chunk metadata", "chunk_id", r.ChunkID, "error", err)
			r.Metadata = map[string]string{}
		}
		// Floating-point distance can land a hair outside [0, 1].
		r.Score = min(max(r.Score, 0), 1)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read search rows: %w", err)
	}
	return results, nil
}

// Stats reports how many chunks the index holds, total and per type.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByType: make(map[string]int)}

	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&stats.TotalChunks); err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}

	rows, err := s.pool.Query(ctx, `SELECT source_type, count(*) FROM chunks GROUP BY source_type`)
	if err != nil {
		return Stats{}, fmt.Errorf("count chunks by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docType string
			n       int
		)
		if err := rows.Scan(&docType, &n); err != nil {
			return Stats{}, fmt.Errorf("scan type count: %w", err)
		}
		stats.ByType[docType] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("read type counts: %w", err)
	}
	return stats, nil
}
