package index

import (
	"context"
	"math"
	"testing"

	"github.com/logic25/beacon-sub000/internal/chunk"
	"github.com/logic25/beacon-sub000/internal/doctype"
	"github.com/logic25/beacon-sub000/internal/testutil"
)

func axisVector(i int) []float32 {
	v := make([]float32, testutil.EmbedDim)
	v[i] = 1
	return v
}

func mixedVector(i, j int) []float32 {
	v := make([]float32, testutil.EmbedDim)
	v[i] = float32(math.Sqrt2 / 2)
	v[j] = float32(math.Sqrt2 / 2)
	return v
}

func testChunks() []chunk.Chunk {
	return []chunk.Chunk{
		{
			ID:         "chunk_det_0",
			Text:       "determination text",
			SourceFile: "determination.md",
			DocType:    doctype.Determination,
			Metadata:   map[string]string{"jurisdiction": "NYC"},
		},
		{
			ID:            "chunk_code_0",
			Text:          "building code text",
			SourceFile:    "code.md",
			DocType:       doctype.BuildingCode,
			SequenceIndex: 0,
			PageNumber:    3,
			Metadata:      map[string]string{"jurisdiction": "NYC"},
		},
		{
			ID:         "chunk_west_0",
			Text:       "westchester procedure text",
			SourceFile: "westchester.md",
			DocType:    doctype.Procedure,
			Metadata:   map[string]string{"jurisdiction": "Westchester"},
		},
	}
}

// testEmbedder pins similarity orderings: the query vector is identical
// to the determination chunk, at 45 degrees to the code chunk, and
// orthogonal to the Westchester chunk.
func testEmbedder() *testutil.MockEmbedder {
	return &testutil.MockEmbedder{
		Vectors: map[string][]float32{
			"test query":                 axisVector(0),
			"determination text":         axisVector(0),
			"building code text":         mixedVector(0, 1),
			"westchester procedure text": axisVector(1),
		},
	}
}

func setupIntegrationStore(t *testing.T) (*Store, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	store := NewStore(db.Pool, testEmbedder(), testutil.QuietLogger())
	return store, cleanup
}

func TestStore_UpsertAndSearch_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	n, err := store.Upsert(ctx, testChunks())
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if n != 3 {
		t.Fatalf("Upsert() = %d, want 3", n)
	}

	results, err := store.Search(ctx, "test query", WithTopK(3))
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	wantOrder := []string{"chunk_det_0", "chunk_code_0", "chunk_west_0"}
	for i, want := range wantOrder {
		if results[i].ChunkID != want {
			t.Errorf("result %d = %q, want %q", i, results[i].ChunkID, want)
		}
	}

	if math.Abs(results[0].Score-1.0) > 0.01 {
		t.Errorf("identical vectors scored %f, want ~1.0", results[0].Score)
	}
	if math.Abs(results[1].Score-math.Sqrt2/2) > 0.01 {
		t.Errorf("45-degree vectors scored %f, want ~0.707", results[1].Score)
	}
	if math.Abs(results[2].Score) > 0.01 {
		t.Errorf("orthogonal vectors scored %f, want ~0", results[2].Score)
	}

	if results[1].PageNumber != 3 {
		t.Errorf("PageNumber = %d, want 3", results[1].PageNumber)
	}
	if results[0].Metadata["jurisdiction"] != "NYC" {
		t.Errorf("metadata not round-tripped: %v", results[0].Metadata)
	}
}

func TestStore_Search_Filters_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, testChunks()); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	t.Run("type filter", func(t *testing.T) {
		results, err := store.Search(ctx, "test query", WithTypeFilter("building_code"))
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 1 || results[0].ChunkID != "chunk_code_0" {
			t.Errorf("type filter returned %v", results)
		}
	})

	t.Run("jurisdiction filter", func(t *testing.T) {
		results, err := store.Search(ctx, "test query", WithJurisdiction("Westchester"))
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 1 || results[0].ChunkID != "chunk_west_0" {
			t.Errorf("jurisdiction filter returned %v", results)
		}
	})

	t.Run("zero matches is not an error", func(t *testing.T) {
		results, err := store.Search(ctx, "test query", WithJurisdiction("New Jersey"))
		if err != nil {
			t.Fatalf("Search() error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("got %d results, want 0", len(results))
		}
	})
}

func TestStore_Upsert_Idempotent_Integration(t *testing.T) {
	store, cleanup := setupIntegrationStore(t)
	defer cleanup()
	ctx := context.Background()

	for range 2 {
		if _, err := store.Upsert(ctx, testChunks()); err != nil {
			t.Fatalf("Upsert() error: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if stats.TotalChunks != 3 {
		t.Errorf("TotalChunks = %d, want 3 after repeated upsert", stats.TotalChunks)
	}
	if stats.ByType["determination"] != 1 || stats.ByType["building_code"] != 1 || stats.ByType["procedure"] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
}
