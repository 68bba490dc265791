// Package chunk splits document text into overlapping, bounded segments for
// indexing.
//
// Chunking is pure and deterministic: the same (text, sourceID, docType)
// always produces identical chunk boundaries and IDs, so re-ingesting an
// unchanged document upserts over the existing vectors instead of
// duplicating them.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/logic25/beacon-sub000/internal/doctype"
)

// Chunk is a bounded span of a document's normalized text.
type Chunk struct {
	// ID is deterministic from the source identifier and sequence index.
	ID string

	// Text is the normalized chunk content, including the overlap carried
	// from the previous chunk.
	Text string

	// SourceFile is the base name of the originating document.
	SourceFile string

	// DocType classifies the originating document.
	DocType doctype.Type

	// SequenceIndex is the zero-based position within the source document.
	SequenceIndex int

	// PageNumber is the 1-based page the chunk starts on, or 0 when unknown.
	PageNumber int

	// Metadata carries free-form document attributes (title, date_issued,
	// jurisdiction, category) copied onto every chunk.
	Metadata map[string]string
}

// Page is a single page of source text, used for page-number backfill.
type Page struct {
	Number int
	Text   string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	controlRe    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)

	// sentenceEndRe marks sentence-terminal punctuation followed by
	// whitespace. Go's regexp has no lookbehind, so splitting keeps the
	// punctuation with the preceding sentence by slicing on match offsets.
	sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)
)

// Normalize collapses whitespace runs to single spaces and strips control
// characters. All chunk boundaries are computed over normalized text.
func Normalize(text string) string {
	text = controlRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// splitSentences splits normalized text at sentence-terminal punctuation.
// The punctuation stays attached to its sentence; the single following
// space is consumed. A trailing fragment without terminal punctuation is
// returned as the final sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for _, loc := range sentenceEndRe.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation character; keep it.
		sentences = append(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// Chunker splits documents into chunks sized per document type.
type Chunker struct {
	logger *slog.Logger
}

// New creates a Chunker. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chunker{logger: logger}
}

// Split chunks text using the size and overlap configured for docType.
func (c *Chunker) Split(text, sourceID string, t doctype.Type, base map[string]string) []Chunk {
	return c.SplitWithParams(text, sourceID, t, base, doctype.ChunkSettings(t))
}

// SplitWithParams chunks text with explicit size and overlap, for callers
// that override the per-type table (e.g. the ingest CLI flags).
//
// Boundaries fall on sentence ends except when a single sentence alone
// exceeds the target size, in which case it is emitted as its own
// oversized chunk. Each chunk after the first begins with the trailing
// overlap window of its predecessor, truncated forward to a sentence
// boundary when one exists inside the window.
func (c *Chunker) SplitWithParams(text, sourceID string, t doctype.Type, base map[string]string, params doctype.ChunkParams) []Chunk {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	sourceFile := filepath.Base(sourceID)
	var chunks []Chunk

	emit := func(body string) {
		chunks = append(chunks, Chunk{
			ID:            chunkID(sourceID, len(chunks)),
			Text:          body,
			SourceFile:    sourceFile,
			DocType:       t,
			SequenceIndex: len(chunks),
			Metadata:      copyMetadata(base),
		})
	}

	var current strings.Builder
	for _, sentence := range splitSentences(normalized) {
		if current.Len() > 0 && current.Len()+len(sentence) > params.Size {
			body := strings.TrimSpace(current.String())
			emit(body)
			current.Reset()
			current.WriteString(overlapTail(body, params.Overlap))
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		emit(tail)
	}

	c.logger.Debug("chunked document",
		"source", sourceFile,
		"doc_type", t,
		"chunks", len(chunks),
		"chunk_size", params.Size,
	)
	return chunks
}

// overlapTail returns the trailing overlap window of a just-closed chunk,
// advanced to the first sentence boundary inside the window when one
// exists so the next chunk does not open mid-sentence.
func overlapTail(body string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	if len(body) <= overlap {
		return body
	}
	window := body[len(body)-overlap:]
	if loc := sentenceEndRe.FindStringIndex(window); loc != nil {
		return window[loc[1]:]
	}
	return window
}

// AssignPageNumbers backfills chunk page numbers by locating the first page
// whose text contains the chunk's opening 100 characters verbatim. This is
// a best-effort heuristic: chunks straddling a page boundary, or whose
// opening repeats elsewhere in the document, can be mis-assigned. Chunks
// with no matching page keep PageNumber zero.
func AssignPageNumbers(chunks []Chunk, pages []Page) {
	normalizedPages := make([]Page, len(pages))
	for i, p := range pages {
		normalizedPages[i] = Page{Number: p.Number, Text: Normalize(p.Text)}
	}

	for i := range chunks {
		opening := chunks[i].Text
		if len(opening) > 100 {
			opening = opening[:100]
		}
		for _, p := range normalizedPages {
			if strings.Contains(p.Text, opening) {
				chunks[i].PageNumber = p.Number
				break
			}
		}
	}
}

// chunkID derives a stable chunk identifier from the source identifier and
// sequence index. The sha256 prefix keeps IDs short enough for index keys
// while staying collision-resistant across the corpus.
func chunkID(sourceID string, index int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d", sourceID, index))
	return "chunk_" + hex.EncodeToString(sum[:8])
}

func copyMetadata(base map[string]string) map[string]string {
	if base == nil {
		return map[string]string{}
	}
	m := make(map[string]string, len(base))
	for k, v := range base {
		m[k] = v
	}
	return m
}
