// Package memory implements the long-term conversation memory pipeline:
// embedding, vector storage, hybrid ranking, and session-end compilation.
package memory

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

// Store wraps chromem-go as the vector index for memory units. Each
// owner gets a dedicated collection so concurrent upserts for different
// owners never contend, and queries can never cross owners.
//
// A nil *Store is a valid degraded instance: every operation logs and
// returns empty. Memory is a best-effort enhancement, never a
// correctness requirement for the conversation itself.
type Store struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// NewStore creates an in-process vector store.
func NewStore() *Store {
	return &Store{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

func (s *Store) collection(ownerID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[ownerID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[ownerID]; ok {
		return col, nil
	}

	col, err := s.db.CreateCollection("owner_"+ownerID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[ownerID] = col
	return col, nil
}

// Upsert inserts or replaces a memory unit by id.
func (s *Store) Upsert(ctx context.Context, unit memorymodel.Unit) error {
	if s == nil {
		log.Printf("[memory] store unavailable, dropping unit owner=%s", unit.OwnerID)
		return nil
	}
	if len(unit.Vector) != memorymodel.EmbeddingDimension {
		return fmt.Errorf("embedding dimension mismatch: got %d want %d", len(unit.Vector), memorymodel.EmbeddingDimension)
	}

	col, err := s.collection(unit.OwnerID)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        unit.ID,
		Content:   unit.Text,
		Embedding: unit.Vector,
		Metadata: map[string]string{
			"user_id":     unit.OwnerID,
			"timestamp":   strconv.FormatInt(unit.CreatedAt, 10),
			"memory_type": string(unit.Kind),
		},
	}

	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	log.Printf("[memory] stored unit id=%s owner=%s kind=%s", unit.ID, unit.OwnerID, unit.Kind)
	return nil
}

// Query returns up to topK memory units for the owner, most similar
// first. Similarity is cosine in [-1, 1].
func (s *Store) Query(ctx context.Context, ownerID string, vector []float32, topK int) ([]memorymodel.Candidate, error) {
	if s == nil {
		log.Printf("[memory] store unavailable, returning no memories owner=%s", ownerID)
		return nil, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	col, err := s.collection(ownerID)
	if err != nil {
		return nil, err
	}

	where := map[string]string{"user_id": ownerID}

	// chromem rejects nResults larger than the collection, so shrink
	// the limit until the query succeeds or the collection proves empty.
	var results []chromem.Result
	for limit := topK; limit >= 1; limit-- {
		results, err = col.QueryEmbedding(ctx, vector, limit, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	candidates := make([]memorymodel.Candidate, 0, len(results))
	for _, result := range results {
		ts, err := strconv.ParseInt(result.Metadata["timestamp"], 10, 64)
		if err != nil {
			log.Printf("[memory] skipping unit %s with bad timestamp %q", result.ID, result.Metadata["timestamp"])
			continue
		}
		candidates = append(candidates, memorymodel.Candidate{
			Unit: memorymodel.Unit{
				ID:        result.ID,
				OwnerID:   result.Metadata["user_id"],
				Vector:    result.Embedding,
				Text:      result.Content,
				CreatedAt: ts,
				Kind:      memorymodel.Kind(result.Metadata["memory_type"]),
			},
			Similarity: float64(result.Similarity),
		})
	}
	return candidates, nil
}

// DefaultTopK bounds store queries when the caller does not specify one.
const DefaultTopK = 5

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
