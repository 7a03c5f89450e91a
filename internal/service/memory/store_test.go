package memory

import (
	"context"
	"testing"

	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

func unitVector(hot int) []float32 {
	vec := make([]float32, memorymodel.EmbeddingDimension)
	vec[hot] = 1
	return vec
}

func testUnit(id, owner string, hot int) memorymodel.Unit {
	return memorymodel.Unit{
		ID:        id,
		OwnerID:   owner,
		Vector:    unitVector(hot),
		Text:      "memory " + id,
		CreatedAt: 1_750_000_000,
		Kind:      memorymodel.KindSummary,
	}
}

func TestStoreUpsertRejectsWrongDimension(t *testing.T) {
	store := NewStore()
	unit := testUnit("u1", "owner-1", 0)
	unit.Vector = []float32{1, 2, 3}

	if err := store.Upsert(context.Background(), unit); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestStoreQueryReturnsMostSimilarFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testUnit("exact", "owner-1", 0)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, testUnit("orthogonal", "owner-1", 1)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	candidates, err := store.Query(ctx, "owner-1", unitVector(0), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Unit.ID != "exact" {
		t.Fatalf("expected exact match first, got %q", candidates[0].Unit.ID)
	}
	if candidates[0].Similarity <= candidates[1].Similarity {
		t.Fatal("candidates must be ordered by similarity")
	}
	if candidates[0].Unit.CreatedAt != 1_750_000_000 {
		t.Fatalf("timestamp lost in round trip: %d", candidates[0].Unit.CreatedAt)
	}
}

func TestStoreQueryShrinksTopKOnSmallCollections(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testUnit("only", "owner-1", 0)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// topK exceeds the collection size; the query must still succeed.
	candidates, err := store.Query(ctx, "owner-1", unitVector(0), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
}

func TestStoreQueryEmptyCollection(t *testing.T) {
	store := NewStore()

	candidates, err := store.Query(context.Background(), "owner-1", unitVector(0), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
}

func TestStoreIsolatesOwners(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testUnit("mine", "owner-1", 0)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, testUnit("theirs", "owner-2", 0)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	candidates, err := store.Query(ctx, "owner-1", unitVector(0), 5)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Unit.ID != "mine" {
		t.Fatalf("owner isolation broken: %+v", candidates)
	}
}

func TestNilStoreDegradesQuietly(t *testing.T) {
	var store *Store

	if err := store.Upsert(context.Background(), testUnit("u1", "owner-1", 0)); err != nil {
		t.Fatalf("nil store upsert must be a no-op, got %v", err)
	}
	candidates, err := store.Query(context.Background(), "owner-1", unitVector(0), 5)
	if err != nil || candidates != nil {
		t.Fatalf("nil store query must return empty, got %v/%v", candidates, err)
	}
}
