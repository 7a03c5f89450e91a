package memory

import (
	"sort"
	"time"

	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

// Ranking contract: relevance blends how similar a memory is to the
// current utterance with how fresh it is. Recency alone would favor
// trivial recent chatter; similarity alone surfaces stale facts. The
// constants below are the contract, not tunables.
const (
	recencyWindow    = 30 * 24 * time.Hour
	similarityWeight = 0.7
	recencyWeight    = 0.3
	maxRanked        = 3
)

// Rank orders candidates by blended relevance and returns the text of
// the top three. Ties keep insertion order (stable sort). Pure function,
// no I/O.
func Rank(candidates []memorymodel.Candidate, now time.Time) []string {
	if len(candidates) == 0 {
		return nil
	}

	type scored struct {
		text  string
		score float64
	}

	window := recencyWindow.Seconds()
	floor := float64(now.Unix()) - window

	ranked := make([]scored, 0, len(candidates))
	for _, cand := range candidates {
		recency := (float64(cand.Unit.CreatedAt) - floor) / window
		if recency < 0 {
			recency = 0
		}
		if recency > 1 {
			recency = 1
		}
		ranked = append(ranked, scored{
			text:  cand.Unit.Text,
			score: similarityWeight*cand.Similarity + recencyWeight*recency,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	limit := len(ranked)
	if limit > maxRanked {
		limit = maxRanked
	}

	texts := make([]string, 0, limit)
	for _, item := range ranked[:limit] {
		texts = append(texts, item.text)
	}
	return texts
}
