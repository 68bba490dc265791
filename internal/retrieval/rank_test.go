package retrieval

import (
	"testing"

	"github.com/logic25/beacon-sub000/internal/corrections"
	"github.com/logic25/beacon-sub000/internal/index"
)

func TestRank_CorrectionPrecedence(t *testing.T) {
	matched := []corrections.Entry{
		{WrongAnswer: "first wrong", CorrectAnswer: "first right"},
		{WrongAnswer: "second wrong", CorrectAnswer: "second right"},
	}
	results := []index.SearchResult{
		{ChunkID: "a", DocType: "determination", Score: 1.0},
		{ChunkID: "b", DocType: "building_code", Score: 0.99},
	}

	items := Rank(matched, results)

	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	// Corrections lead even against a perfect-score ruling, and keep the
	// store's order among themselves.
	if items[0].Correction == nil || items[0].Correction.WrongAnswer != "first wrong" {
		t.Errorf("item 0 = %+v, want first correction", items[0])
	}
	if items[1].Correction == nil || items[1].Correction.WrongAnswer != "second wrong" {
		t.Errorf("item 1 = %+v, want second correction", items[1])
	}
	if items[2].Result == nil || items[2].Result.ChunkID != "a" {
		t.Errorf("item 2 = %+v, want result a", items[2])
	}
}

func TestRank_TierBeforeScore(t *testing.T) {
	results := []index.SearchResult{
		{ChunkID: "weak-ruling", DocType: "determination", Score: 0.55},
		{ChunkID: "strong-generic", DocType: "document", Score: 0.95},
		{ChunkID: "bulletin", DocType: "technical_bulletin", Score: 0.70},
	}

	items := Rank(nil, results)

	want := []string{"weak-ruling", "bulletin", "strong-generic"}
	for i, id := range want {
		if items[i].Result.ChunkID != id {
			t.Errorf("position %d = %s, want %s", i, items[i].Result.ChunkID, id)
		}
	}
}

func TestRank_ScoreWithinTier(t *testing.T) {
	results := []index.SearchResult{
		{ChunkID: "code-low", DocType: "building_code", Score: 0.6},
		{ChunkID: "zoning-high", DocType: "zoning", Score: 0.9},
	}

	items := Rank(nil, results)

	if items[0].Result.ChunkID != "zoning-high" {
		t.Errorf("equal-tier items must order by score, got %s first", items[0].Result.ChunkID)
	}
}

func TestRank_StableTieBreak(t *testing.T) {
	results := []index.SearchResult{
		{ChunkID: "first", DocType: "rule", Score: 0.8},
		{ChunkID: "second", DocType: "building_code", Score: 0.8},
		{ChunkID: "third", DocType: "zoning", Score: 0.8},
	}

	items := Rank(nil, results)

	want := []string{"first", "second", "third"}
	for i, id := range want {
		if items[i].Result.ChunkID != id {
			t.Errorf("tie at equal tier and score must keep input order, position %d = %s", i, items[i].Result.ChunkID)
		}
	}
}

func TestRank_UnknownTypeLowestTier(t *testing.T) {
	results := []index.SearchResult{
		{ChunkID: "mystery", DocType: "blog_post", Score: 0.99},
		{ChunkID: "notes", DocType: "internal_notes", Score: 0.5},
	}

	items := Rank(nil, results)

	if items[0].Result.ChunkID != "notes" {
		t.Errorf("unknown type must rank at the lowest tier, got %s first", items[0].Result.ChunkID)
	}
}

func TestRank_Empty(t *testing.T) {
	if items := Rank(nil, nil); len(items) != 0 {
		t.Errorf("Rank(nil, nil) = %v, want empty", items)
	}
}
