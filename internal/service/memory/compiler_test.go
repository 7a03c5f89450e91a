package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	chatmodel "github.com/tripot-app/backend/internal/model/chat"
	memorymodel "github.com/tripot-app/backend/internal/model/memory"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.summary, f.err
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return make([]float32, memorymodel.EmbeddingDimension), nil
}

type fakeUpserter struct {
	units []memorymodel.Unit
	err   error
}

func (f *fakeUpserter) Upsert(_ context.Context, unit memorymodel.Unit) error {
	if f.err != nil {
		return f.err
	}
	f.units = append(f.units, unit)
	return nil
}

func newTestCompiler(summarizer Summarizer, embedder Embedder, store Upserter) *Compiler {
	c := NewCompiler(summarizer, embedder, store)
	c.now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	c.newID = func() string { return "unit-1" }
	return c
}

func TestFlushEmptyTranscriptIsNoOp(t *testing.T) {
	store := &fakeUpserter{}
	c := newTestCompiler(&fakeSummarizer{}, &fakeEmbedder{}, store)

	c.Flush(context.Background(), "user-1", nil)

	if len(store.units) != 0 {
		t.Fatalf("expected no units, got %d", len(store.units))
	}
}

func TestFlushShortSessionStoresVerbatimUtterance(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "should not be used"}
	store := &fakeUpserter{}
	c := newTestCompiler(summarizer, &fakeEmbedder{}, store)

	lines := []chatmodel.Line{
		chatmodel.AgentLine("안녕하세요!"),
		chatmodel.UserLine("그래 반갑네"),
	}
	c.Flush(context.Background(), "user-1", lines)

	if summarizer.calls != 0 {
		t.Fatalf("short session must not be distilled, got %d calls", summarizer.calls)
	}
	if len(store.units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(store.units))
	}
	unit := store.units[0]
	if unit.Kind != memorymodel.KindUtterance {
		t.Fatalf("expected utterance kind, got %s", unit.Kind)
	}
	want := "AI: 안녕하세요!\n사용자: 그래 반갑네"
	if unit.Text != want {
		t.Fatalf("got text %q, want %q", unit.Text, want)
	}
	if unit.ID != "unit-1" || unit.OwnerID != "user-1" {
		t.Fatalf("unexpected identity: %+v", unit)
	}
	if unit.CreatedAt != time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC).Unix() {
		t.Fatalf("unexpected timestamp %d", unit.CreatedAt)
	}
}

func TestFlushGreetingOnlySessionStillStored(t *testing.T) {
	store := &fakeUpserter{}
	c := newTestCompiler(&fakeSummarizer{}, &fakeEmbedder{}, store)

	c.Flush(context.Background(), "user-1", []chatmodel.Line{chatmodel.AgentLine("안녕하세요!")})

	if len(store.units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(store.units))
	}
	if store.units[0].Text != "AI: 안녕하세요!" {
		t.Fatalf("got text %q", store.units[0].Text)
	}
}

func TestFlushLongSessionStoresSummary(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "서울에 사는 손자 민준이를 보고 싶어한다."}
	store := &fakeUpserter{}
	c := newTestCompiler(summarizer, &fakeEmbedder{}, store)

	lines := []chatmodel.Line{
		chatmodel.AgentLine("안녕하세요!"),
		chatmodel.UserLine("우리 손자 민준이가 서울에 살아"),
		chatmodel.AgentLine("민준이를 많이 보고 싶으시겠어요"),
		chatmodel.UserLine("그래, 보고 싶지"),
	}
	c.Flush(context.Background(), "user-1", lines)

	if summarizer.calls != 1 {
		t.Fatalf("expected 1 distillation call, got %d", summarizer.calls)
	}
	if len(store.units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(store.units))
	}
	unit := store.units[0]
	if unit.Kind != memorymodel.KindSummary {
		t.Fatalf("expected summary kind, got %s", unit.Kind)
	}
	if unit.Text != summarizer.summary {
		t.Fatalf("got text %q", unit.Text)
	}
}

func TestFlushSummarizerFailureSkipsMemory(t *testing.T) {
	summarizer := &fakeSummarizer{err: errors.New("model down")}
	embedder := &fakeEmbedder{}
	store := &fakeUpserter{}
	c := newTestCompiler(summarizer, embedder, store)

	lines := []chatmodel.Line{
		chatmodel.AgentLine("a"), chatmodel.UserLine("b"),
		chatmodel.AgentLine("c"), chatmodel.UserLine("d"),
	}
	c.Flush(context.Background(), "user-1", lines)

	if embedder.calls != 0 {
		t.Fatalf("embedding must not run after distillation failure")
	}
	if len(store.units) != 0 {
		t.Fatalf("expected no units, got %d", len(store.units))
	}
}

func TestFlushEmbedderFailureSkipsMemory(t *testing.T) {
	store := &fakeUpserter{}
	c := newTestCompiler(&fakeSummarizer{}, &fakeEmbedder{err: errors.New("quota")}, store)

	c.Flush(context.Background(), "user-1", []chatmodel.Line{chatmodel.AgentLine("안녕하세요!")})

	if len(store.units) != 0 {
		t.Fatalf("expected no units, got %d", len(store.units))
	}
}

func TestFlushUpsertFailureDoesNotPanic(t *testing.T) {
	c := newTestCompiler(&fakeSummarizer{}, &fakeEmbedder{}, &fakeUpserter{err: errors.New("disk full")})
	c.Flush(context.Background(), "user-1", []chatmodel.Line{chatmodel.AgentLine("안녕하세요!")})
}

func TestFlushLongSessionWithoutSummarizerSkipsMemory(t *testing.T) {
	embedder := &fakeEmbedder{}
	store := &fakeUpserter{}
	c := newTestCompiler(nil, embedder, store)

	lines := []chatmodel.Line{
		chatmodel.AgentLine("a"), chatmodel.UserLine("b"),
		chatmodel.AgentLine("c"), chatmodel.UserLine("d"),
	}
	c.Flush(context.Background(), "user-1", lines)

	if embedder.calls != 0 {
		t.Fatal("embedding must not run without a summarizer")
	}
	if len(store.units) != 0 {
		t.Fatalf("long session without summarizer must not store a unit, got %+v", store.units)
	}
}

func TestFlushShortSessionWithoutSummarizerStillStored(t *testing.T) {
	store := &fakeUpserter{}
	c := newTestCompiler(nil, &fakeEmbedder{}, store)

	lines := []chatmodel.Line{
		chatmodel.AgentLine("안녕하세요!"),
		chatmodel.UserLine("그래 반갑네"),
	}
	c.Flush(context.Background(), "user-1", lines)

	if len(store.units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(store.units))
	}
	if store.units[0].Kind != memorymodel.KindUtterance {
		t.Fatalf("expected utterance kind, got %s", store.units[0].Kind)
	}
}
