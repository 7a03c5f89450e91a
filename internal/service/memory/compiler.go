package memory

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	chatmodel "github.com/tripot-app/backend/internal/model/chat"
	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

// Sessions shorter than this rarely contain anything worth distilling
// beyond the literal exchange, so their transcript is stored verbatim.
const shortSessionThreshold = 4

// Summarizer distills a transcript into a 1-2 sentence memory that
// keeps every proper noun.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// Upserter is the slice of the store the compiler needs.
type Upserter interface {
	Upsert(ctx context.Context, unit memorymodel.Unit) error
}

// Compiler turns a finished session transcript into at most one memory
// unit. Any failure on this path logs and skips; losing a memory is
// acceptable, crashing session teardown is not.
type Compiler struct {
	summarizer Summarizer
	embedder   Embedder
	store      Upserter

	now   func() time.Time
	newID func() string
}

// NewCompiler wires the session-end memory pipeline.
func NewCompiler(summarizer Summarizer, embedder Embedder, store Upserter) *Compiler {
	return &Compiler{
		summarizer: summarizer,
		embedder:   embedder,
		store:      store,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Flush classifies the transcript, produces the memory content, embeds
// it, and upserts exactly one unit. An empty transcript is a no-op.
func (c *Compiler) Flush(ctx context.Context, ownerID string, lines []chatmodel.Line) {
	if len(lines) == 0 {
		return
	}

	log.Printf("[compiler] building session memory owner=%s lines=%d", ownerID, len(lines))

	var (
		text string
		kind memorymodel.Kind
	)

	if len(lines) < shortSessionThreshold {
		text = chatmodel.JoinLines(lines)
		kind = memorymodel.KindUtterance
	} else {
		if c.summarizer == nil {
			log.Printf("[compiler] summarizer unavailable, skipping memory owner=%s", ownerID)
			return
		}
		summary, err := c.summarizer.Summarize(ctx, chatmodel.JoinLines(lines))
		if err != nil {
			log.Printf("[compiler] distillation failed, skipping memory owner=%s: %v", ownerID, err)
			return
		}
		text = summary
		kind = memorymodel.KindSummary
	}

	if c.embedder == nil {
		log.Printf("[compiler] embedder unavailable, skipping memory owner=%s", ownerID)
		return
	}

	vector, err := c.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("[compiler] embedding failed, skipping memory owner=%s: %v", ownerID, err)
		return
	}

	unit := memorymodel.Unit{
		ID:        c.newID(),
		OwnerID:   ownerID,
		Vector:    vector,
		Text:      text,
		CreatedAt: c.now().Unix(),
		Kind:      kind,
	}

	if err := c.store.Upsert(ctx, unit); err != nil {
		log.Printf("[compiler] upsert failed, memory lost owner=%s: %v", ownerID, err)
		return
	}

	log.Printf("[compiler] session memory stored owner=%s kind=%s", ownerID, kind)
}
