package memory

import (
	"reflect"
	"testing"
	"time"

	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

func candidate(text string, similarity float64, createdAt time.Time) memorymodel.Candidate {
	return memorymodel.Candidate{
		Unit: memorymodel.Unit{
			ID:        text,
			Text:      text,
			CreatedAt: createdAt.Unix(),
		},
		Similarity: similarity,
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil, time.Now()); got != nil {
		t.Fatalf("expected nil for no candidates, got %v", got)
	}
}

func TestRankFreshPerfectMatchScoresHighest(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	got := Rank([]memorymodel.Candidate{
		candidate("old perfect", 1.0, now.Add(-60*24*time.Hour)),
		candidate("fresh perfect", 1.0, now),
	}, now)

	if got[0] != "fresh perfect" {
		t.Fatalf("expected fresh memory first, got %v", got)
	}
}

func TestRankRecencyCanBeatSimilarity(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	// Old perfect match scores 0.7; a fresh 0.6 match scores 0.72.
	got := Rank([]memorymodel.Candidate{
		candidate("stale fact", 1.0, now.Add(-45*24*time.Hour)),
		candidate("recent chat", 0.6, now),
	}, now)

	if got[0] != "recent chat" {
		t.Fatalf("expected fresh memory to outrank stale one, got %v", got)
	}
}

func TestRankCapsAtThree(t *testing.T) {
	now := time.Now()
	candidates := []memorymodel.Candidate{
		candidate("a", 0.9, now),
		candidate("b", 0.8, now),
		candidate("c", 0.7, now),
		candidate("d", 0.6, now),
		candidate("e", 0.5, now),
	}

	got := Rank(candidates, now)
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRankTiesKeepInputOrder(t *testing.T) {
	now := time.Now()
	candidates := []memorymodel.Candidate{
		candidate("first", 0.5, now),
		candidate("second", 0.5, now),
		candidate("third", 0.5, now),
	}

	got := Rank(candidates, now)
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRankIsDeterministic(t *testing.T) {
	now := time.Now()
	candidates := []memorymodel.Candidate{
		candidate("a", 0.4, now.Add(-10*24*time.Hour)),
		candidate("b", 0.9, now.Add(-29*24*time.Hour)),
		candidate("c", 0.7, now),
	}

	first := Rank(candidates, now)
	second := Rank(candidates, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("ranking changed between runs: %v vs %v", first, second)
	}
}
