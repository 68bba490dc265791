// Package ingest loads documents from disk, chunks them, and upserts the
// chunks into the search index in rate-limited, retried batches.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/logic25/beacon-sub000/internal/chunk"
	"github.com/logic25/beacon-sub000/internal/doctype"
	"github.com/logic25/beacon-sub000/internal/index"
)

// supportedExtensions lists the file types the ingestor reads directly.
// Page-bearing formats (PDF) arrive through a separate extraction step
// that yields plain text.
var supportedExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Options configures an Ingestor. Zero values fall back to defaults.
type Options struct {
	BatchSize       int           // chunks per upsert call, default 100
	Workers         int           // concurrent files and batches, default 4
	MaxRetries      int           // retries per failed batch, default 3
	RateLimit       rate.Limit    // upsert calls per second, default 2
	InitialInterval time.Duration // first backoff delay, default 500ms
	MaxInterval     time.Duration // backoff ceiling, default 10s
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 2
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 10 * time.Second
	}
}

// Result summarizes one ingestion run.
type Result struct {
	RunID          string
	FilesAdded     int
	FilesSkipped   int
	FilesFailed    int
	ChunksUpserted int
	Duration       time.Duration
}

// PartialError reports an ingestion run that wrote some chunks but not
// all. Spans name the failed source ranges, e.g. "guide.md[100:200)";
// a file that could not be read at all appears as its bare path.
type PartialError struct {
	Spans []string
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial ingestion: %d spans failed: %s",
		len(e.Spans), strings.Join(e.Spans, ", "))
}

// Ingestor chunks documents and upserts them into the index. Safe for
// concurrent use, though runs are typically sequential batch jobs.
type Ingestor struct {
	index   index.Client
	chunker *chunk.Chunker
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

// New creates an Ingestor. A nil logger falls back to slog.Default.
func New(idx index.Client, opts Options, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	return &Ingestor{
		index:   idx,
		chunker: chunk.New(logger),
		limiter: rate.NewLimiter(opts.RateLimit, 1),
		opts:    opts,
		logger:  logger,
	}
}

// batchJob is one upsert unit: a bounded slice of a single source's
// chunks, retried and reported independently of its siblings.
type batchJob struct {
	source string
	start  int // first sequence index in the batch
	end    int // one past the last sequence index
	chunks []chunk.Chunk
}

func (j batchJob) span() string {
	return fmt.Sprintf("%s[%d:%d)", j.source, j.start, j.end)
}

// File ingests a single document. An explicit docType overrides path
// detection; pass an empty type to detect it from the path.
func (ing *Ingestor) File(ctx context.Context, path string, docType doctype.Type) (Result, error) {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}

	chunks, err := ing.prepareFile(path, docType, result.RunID)
	if err != nil {
		result.FilesFailed = 1
		result.Duration = time.Since(start)
		return result, err
	}
	if chunks == nil {
		result.FilesSkipped = 1
		result.Duration = time.Since(start)
		return result, nil
	}
	result.FilesAdded = 1

	upserted, failed := ing.runBatches(ctx, ing.splitBatches(path, chunks))
	result.ChunksUpserted = upserted
	result.Duration = time.Since(start)

	if len(failed) > 0 {
		return result, &PartialError{Spans: failed}
	}
	return result, nil
}

// Directory ingests every supported file under dir, recursively. Files
// are processed by a bounded worker pool; one file's failure never
// aborts the others.
func (ing *Ingestor) Directory(ctx context.Context, dir string) (Result, error) {
	start := time.Now()
	result := Result{RunID: uuid.NewString()}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	ing.logger.Info("ingesting directory", "dir", dir, "files", len(files), "run", result.RunID)

	var (
		mu          sync.Mutex
		jobs        []batchJob
		failedFiles []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.opts.Workers)
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks, err := ing.prepareFile(path, "", result.RunID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				ing.logger.Error("failed to process file", "file", path, "error", err)
				result.FilesFailed++
				failedFiles = append(failedFiles, path)
			case chunks == nil:
				result.FilesSkipped++
			default:
				result.FilesAdded++
				jobs = append(jobs, ing.splitBatches(path, chunks)...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	upserted, failed := ing.runBatches(ctx, jobs)
	result.ChunksUpserted = upserted
	result.Duration = time.Since(start)

	ing.logger.Info("ingestion run complete",
		"run", result.RunID,
		"files", result.FilesAdded,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.ChunksUpserted,
		"duration", result.Duration)

	if len(failed) > 0 || len(failedFiles) > 0 {
		spans := append(failedFiles, failed...)
		sort.Strings(spans)
		return result, &PartialError{Spans: spans}
	}
	return result, nil
}

// prepareFile reads and chunks one document. A nil, nil return means the
// file type is unsupported and was skipped.
func (ing *Ingestor) prepareFile(path string, docType doctype.Type, runID string) ([]chunk.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		ing.logger.Warn("skipping unsupported file type", "file", path)
		return nil, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- paths come from operator CLI arguments
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)

	if docType == "" {
		docType = doctype.DetectFromPath(path)
		ing.logger.Debug("detected document type", "file", path, "type", docType)
	}

	metadata := map[string]string{}
	if ext == ".md" {
		metadata = extractMarkdownMetadata(text)
	}
	if metadata["title"] == "" {
		metadata["title"] = strings.TrimSuffix(filepath.Base(path), ext)
	}
	metadata["file_path"] = path
	metadata["ingest_run"] = runID

	chunks := ing.chunker.Split(text, path, docType, metadata)
	ing.logger.Debug("chunked file", "file", path, "chunks", len(chunks))
	return chunks, nil
}

// splitBatches cuts a source's chunks into upsert-sized jobs.
func (ing *Ingestor) splitBatches(source string, chunks []chunk.Chunk) []batchJob {
	var jobs []batchJob
	for start := 0; start < len(chunks); start += ing.opts.BatchSize {
		end := min(start+ing.opts.BatchSize, len(chunks))
		jobs = append(jobs, batchJob{
			source: source,
			start:  start,
			end:    end,
			chunks: chunks[start:end],
		})
	}
	return jobs
}

// runBatches upserts jobs concurrently under the worker limit. Each job
// succeeds or fails on its own; failures come back as spans.
func (ing *Ingestor) runBatches(ctx context.Context, jobs []batchJob) (int, []string) {
	var (
		mu       sync.Mutex
		upserted int
		failed   []string
	)

	g := &errgroup.Group{}
	g.SetLimit(ing.opts.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			n, err := ing.upsertWithRetry(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			upserted += n
			if err != nil {
				ing.logger.Error("batch failed after retries", "span", job.span(), "error", err)
				failed = append(failed, job.span())
			}
			return nil
		})
	}
	_ = g.Wait() // workers report through failed, never an error

	sort.Strings(failed)
	return upserted, failed
}

// upsertWithRetry writes one batch with exponential backoff. Every
// attempt waits on the shared rate limiter so retries cannot stampede
// the embedding provider.
func (ing *Ingestor) upsertWithRetry(ctx context.Context, job batchJob) (int, error) {
	var lastErr error
	delay := ing.opts.InitialInterval

	for attempt := 0; attempt <= ing.opts.MaxRetries; attempt++ {
		if err := ing.limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit wait: %w", err)
		}

		n, err := ing.index.Upsert(ctx, job.chunks)
		if err == nil {
			return n, nil
		}
		lastErr = err

		if attempt == ing.opts.MaxRetries {
			break
		}

		ing.logger.Debug("retrying batch",
			"span", job.span(), "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, ing.opts.MaxInterval)
		}
	}
	return 0, fmt.Errorf("upsert %s after %d retries: %w", job.span(), ing.opts.MaxRetries, lastErr)
}
