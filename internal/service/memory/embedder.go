package memory

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

// EmbeddingError marks a failed embedding call. It is fatal to the
// memory-lookup path for the turn but must never abort the turn itself.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// Embedder converts text into a fixed-dimension dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder calls the OpenAI embeddings API. Embeddings are
// deterministic for identical text and model version, so results are
// cached to avoid paying twice for the same text (session summaries are
// embedded once and queried many times).
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	cache  *ristretto.Cache
}

// NewOpenAIEmbedder builds the embedding adapter.
func NewOpenAIEmbedder(apiKey, model string) (*OpenAIEmbedder, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     1 << 24, // ~16MB of vectors
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		cache:  cache,
	}, nil
}

// Embed returns the 1536-dimension vector for the text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		if vec, ok := cached.([]float32); ok {
			return vec, nil
		}
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, &EmbeddingError{Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &EmbeddingError{Err: fmt.Errorf("empty embedding response")}
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	if len(vec) != memorymodel.EmbeddingDimension {
		return nil, &EmbeddingError{Err: fmt.Errorf("unexpected dimension %d", len(vec))}
	}

	e.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}
