// Package memory defines the durable long-term memory unit produced at
// session end and retrieved during conversation turns.
package memory

// Kind discriminates how a memory unit was produced.
type Kind string

const (
	// KindUtterance stores the raw transcript of a short session.
	KindUtterance Kind = "utterance"
	// KindSummary stores a model-distilled abstraction of a long session.
	KindSummary Kind = "summary"
)

// EmbeddingDimension matches the text-embedding-3-small output size and
// the vector store's configured dimension.
const EmbeddingDimension = 1536

// Unit is one stored fragment of past conversation. Units are never
// mutated after creation; re-upsert by id is the only replace path.
type Unit struct {
	ID        string
	OwnerID   string
	Vector    []float32
	Text      string
	CreatedAt int64 // epoch seconds
	Kind      Kind
}

// Candidate pairs a retrieved unit with its cosine similarity to the
// query, as reported by the vector store.
type Candidate struct {
	Unit       Unit
	Similarity float64
}
