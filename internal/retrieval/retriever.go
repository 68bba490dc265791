package retrieval

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/logic25/beacon-sub000/internal/corrections"
	"github.com/logic25/beacon-sub000/internal/index"
	"github.com/logic25/beacon-sub000/internal/jurisdiction"
)

// Options configures a Retriever. Zero values fall back to defaults.
type Options struct {
	TopK              int           // default 5
	MinScore          float64       // default 0.5
	CitationThreshold float64       // default 0.65, applied on top of MinScore
	SearchTimeout     time.Duration // default 5s, per index search
}

func (o *Options) applyDefaults() {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.MinScore <= 0 {
		o.MinScore = 0.5
	}
	if o.CitationThreshold <= 0 {
		o.CitationThreshold = 0.65
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 5 * time.Second
	}
}

// Result is what a query yields. ResultCount of zero with an empty
// Context is a valid outcome, not an error; the caller decides whether
// to answer from general knowledge.
type Result struct {
	Context      string
	Citations    []Citation
	ResultCount  int
	Jurisdiction string // "" when the query was not scoped
	Query        string
}

// Retriever orchestrates a query: correction overlay lookup,
// jurisdiction-scoped index search with one unscoped fallback, ranking,
// and formatting. Safe for concurrent use.
type Retriever struct {
	index       index.Client
	corrections *corrections.Store
	opts        Options
	logger      *slog.Logger
}

// New creates a Retriever. A nil logger falls back to slog.Default.
func New(idx index.Client, store *corrections.Store, opts Options, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	opts.applyDefaults()
	return &Retriever{
		index:       idx,
		corrections: store,
		opts:        opts,
		logger:      logger,
	}
}

// QueryOption overrides retriever defaults for a single call.
type QueryOption func(*queryConfig)

type queryConfig struct {
	topK     int
	minScore float64
	docType  string
}

// WithTopK caps the number of search results for this call.
func WithTopK(k int) QueryOption {
	return func(c *queryConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMinScore overrides the minimum similarity for this call.
func WithMinScore(score float64) QueryOption {
	return func(c *queryConfig) {
		if score > 0 {
			c.minScore = score
		}
	}
}

// WithDocType restricts the search to one document type.
func WithDocType(docType string) QueryOption {
	return func(c *queryConfig) {
		c.docType = docType
	}
}

// Retrieve assembles context for the query. Collaborator failures
// degrade to fewer results rather than failing the call; the returned
// error is reserved for caller cancellation.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...QueryOption) (Result, error) {
	cfg := &queryConfig{topK: r.opts.TopK, minScore: r.opts.MinScore}
	for _, opt := range opts {
		opt(cfg)
	}

	// Pick up correction-store edits before matching, so a submission is
	// visible to the very next query.
	r.corrections.ReloadIfStale()

	scope, scoped := jurisdiction.Detect(query)

	// Correction matching and the scoped search are independent; run them
	// concurrently and join before ranking.
	var (
		matched []corrections.Entry
		kept    []index.SearchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matched = r.corrections.FindRelevant(query)
		return nil
	})
	g.Go(func() error {
		kept = r.search(gctx, query, cfg, scope)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// A scoped search that found nothing useful gets exactly one unscoped
	// retry; a third search is never issued.
	if scoped && len(kept) == 0 {
		r.logger.Debug("scoped search empty, retrying unscoped", "jurisdiction", scope)
		kept = r.search(ctx, query, cfg, "")
	}

	items := Rank(matched, kept)
	contextText, citations := Format(items, cfg.minScore, r.opts.CitationThreshold)

	result := Result{
		Context:      contextText,
		Citations:    citations,
		ResultCount:  len(matched) + len(kept),
		Jurisdiction: scope,
		Query:        query,
	}
	r.logger.Info("retrieved context",
		"documents", len(kept),
		"corrections", len(matched),
		"jurisdiction", scope,
		"query", truncate(query, 60))
	return result, nil
}

// search runs one index search and returns the hits at or above the
// minimum score. Timeouts and collaborator errors degrade to zero
// results.
func (r *Retriever) search(ctx context.Context, query string, cfg *queryConfig, scope string) []index.SearchResult {
	searchOpts := []index.SearchOption{
		index.WithTopK(cfg.topK),
		index.WithTimeout(r.opts.SearchTimeout),
	}
	if cfg.docType != "" {
		searchOpts = append(searchOpts, index.WithTypeFilter(cfg.docType))
	}
	if scope != "" {
		searchOpts = append(searchOpts, index.WithJurisdiction(scope))
	}

	results, err := r.index.Search(ctx, query, searchOpts...)
	if err != nil {
		r.logger.Warn("index search failed, degrading to zero results",
			"jurisdiction", scope, "error", err)
		return nil
	}

	kept := results[:0:0]
	for _, res := range results {
		if res.Score >= cfg.minScore {
			kept = append(kept, res)
		}
	}
	return kept
}
