// Package corrections reads the team knowledge-base file and overlays
// verified fact corrections on top of retrieval results.
//
// The backing file is written by the correction-submission workflow
// (out of scope here); this package only reads it. The store keeps an
// immutable in-memory snapshot swapped atomically on reload, so concurrent
// queries always observe either the fully-old or the fully-new table.
package corrections

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
)

// Entry is a team-submitted fact override.
type Entry struct {
	// WrongAnswer is the incorrect statement the model produced.
	WrongAnswer string

	// CorrectAnswer is the verified replacement.
	CorrectAnswer string

	// Topics are free-text tags used for relevance matching.
	Topics []string

	// Context carries optional explanatory notes.
	Context string
}

// record mirrors the on-disk knowledge-base entry layout. The submission
// workflow stores several entry types (qa_pair, procedure, tip); only
// records with EntryType "correction" become Entries.
type record struct {
	EntryType string   `json:"entry_type"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Context   string   `json:"context"`
	Topics    []string `json:"topics"`
}

// knowledgeFile tolerates both on-disk shapes: a top-level map of
// entryID → record, or the same map nested under "entries".
type knowledgeFile struct {
	Entries map[string]record `json:"entries"`
}

// snapshot is the immutable unit swapped on reload.
type snapshot struct {
	entries  []Entry
	modTime  time.Time
	loadedAt time.Time
}

// matching thresholds: words this short ("the", "and", "for") match almost
// anything, and fewer overlapping words than this produce false positives
// on paraphrased questions.
const (
	minWordLen = 4
	minOverlap = 2
)

// Store serves correction entries with hot reload on file change.
// Safe for concurrent use; readers never block on a reload.
type Store struct {
	path    string
	lock    *flock.Flock
	logger  *slog.Logger
	current atomic.Pointer[snapshot]
}

// New creates a Store over the given backing file and performs the initial
// load. A missing file is not an error: the store starts empty and picks
// the file up once it appears. A nil logger falls back to slog.Default().
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
	}
	s.current.Store(&snapshot{})
	s.ReloadIfStale()
	return s
}

// ReloadIfStale reloads the backing file when its modification time differs
// from the time recorded at the last load. Called once per query before
// matching. On read or parse failure the previous snapshot keeps serving:
// stale-but-available beats hard failure.
func (s *Store) ReloadIfStale() {
	info, err := os.Stat(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("stat corrections file failed, keeping current snapshot",
				"path", s.path, "error", err)
		}
		return
	}

	prev := s.current.Load()
	if info.ModTime().Equal(prev.modTime) {
		return
	}

	entries, err := s.load()
	if err != nil {
		s.logger.Warn("reloading corrections failed, keeping current snapshot",
			"path", s.path, "error", err)
		return
	}

	next := &snapshot{
		entries:  entries,
		modTime:  info.ModTime(),
		loadedAt: time.Now(),
	}
	// Single pointer swap: concurrent readers see the old or the new
	// table in full, never a partial reload.
	s.current.Store(next)
	s.logger.Info("corrections reloaded", "count", len(entries), "path", s.path)
}

// load reads and parses the backing file under a shared file lock so a
// concurrent writer (the submission workflow) cannot hand us a torn file.
func (s *Store) load() ([]Entry, error) {
	if err := s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("acquiring shared lock: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("releasing corrections file lock", "error", err)
		}
	}()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading corrections file: %w", err)
	}

	records, err := parseKnowledgeFile(data)
	if err != nil {
		return nil, err
	}

	// Rebuild in sorted entry-ID order so the relevance match walks
	// corrections deterministically across reloads.
	ids := make([]string, 0, len(records))
	for id, rec := range records {
		if rec.EntryType == "correction" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		rec := records[id]
		entries = append(entries, Entry{
			WrongAnswer:   rec.Question,
			CorrectAnswer: rec.Answer,
			Topics:        rec.Topics,
			Context:       rec.Context,
		})
	}
	return entries, nil
}

func parseKnowledgeFile(data []byte) (map[string]record, error) {
	var nested knowledgeFile
	if err := json.Unmarshal(data, &nested); err == nil && len(nested.Entries) > 0 {
		return nested.Entries, nil
	}

	var flat map[string]record
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parsing corrections file: %w", err)
	}
	return flat, nil
}

// Count returns the number of corrections in the current snapshot.
func (s *Store) Count() int {
	return len(s.current.Load().entries)
}

// Snapshot returns the current correction table. The slice is immutable;
// callers iterating it observe one consistent reload generation.
func (s *Store) Snapshot() []Entry {
	return s.current.Load().entries
}

// FindRelevant returns the corrections matching the query, preserving
// snapshot order. A correction matches when at least minOverlap words
// longer than minWordLen-1 characters appear both in the query and in the
// correction's topics, wrong answer, or correct answer.
//
// The whole result comes from one snapshot, so a reload mid-query can
// never mix old and new corrections.
func (s *Store) FindRelevant(query string) []Entry {
	snap := s.current.Load()
	if len(snap.entries) == 0 {
		return nil
	}

	queryWords := meaningfulWords(query)
	if len(queryWords) == 0 {
		return nil
	}

	var relevant []Entry
	for _, entry := range snap.entries {
		combined := strings.Join(entry.Topics, " ") + " " +
			entry.WrongAnswer + " " + entry.CorrectAnswer
		overlap := 0
		for word := range meaningfulWords(combined) {
			if _, ok := queryWords[word]; ok {
				overlap++
				if overlap >= minOverlap {
					relevant = append(relevant, entry)
					break
				}
			}
		}
	}
	return relevant
}

// meaningfulWords lowercases and tokenizes text, keeping only words long
// enough to be discriminating.
func meaningfulWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len(w) >= minWordLen {
			words[w] = struct{}{}
		}
	}
	return words
}
