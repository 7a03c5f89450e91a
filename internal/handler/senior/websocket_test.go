package senior

import (
	"context"
	"encoding/base64"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tripot-app/backend/internal/config"
	memorymodel "github.com/tripot-app/backend/internal/model/memory"
	"github.com/tripot-app/backend/internal/service/memory"
	"github.com/tripot-app/backend/internal/service/session"
	"github.com/tripot-app/backend/internal/service/turn"
)

type fakeTranscriber struct{ text string }

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	return f.text, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, memorymodel.EmbeddingDimension), nil
}

type fakeGenerator struct{ reply string }

func (f *fakeGenerator) Reply(_ context.Context, _ string) (string, error) {
	return f.reply, nil
}

type recordingUpserter struct {
	mu    sync.Mutex
	units []memorymodel.Unit
}

func (r *recordingUpserter) Upsert(_ context.Context, unit memorymodel.Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.units = append(r.units, unit)
	return nil
}

func (r *recordingUpserter) snapshot() []memorymodel.Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]memorymodel.Unit(nil), r.units...)
}

func newTestServer(t *testing.T, upserter *recordingUpserter) *httptest.Server {
	t.Helper()

	talkPrompt := &config.TalkPrompt{
		SystemMessageBase:     []string{"당신은 말동무입니다."},
		CoreConversationRules: []string{"짧게 대답합니다."},
	}

	registry := session.NewRegistry()
	orchestrator := turn.NewOrchestrator(
		&fakeTranscriber{text: "오늘 기분이 좋아"},
		fakeEmbedder{},
		memory.NewStore(),
		&fakeGenerator{reply: "기분이 좋으시다니 다행이에요."},
		nil,
		registry,
		talkPrompt,
		nil,
		nil,
	)
	compiler := memory.NewCompiler(nil, fakeEmbedder{}, upserter)
	handler := New(registry, orchestrator, compiler, "안녕하세요!")

	r := chi.NewRouter()
	handler.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) (string, string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg.Type, msg.Content
}

func TestWebSocketConversationRoundTrip(t *testing.T) {
	upserter := &recordingUpserter{}
	srv := newTestServer(t, upserter)

	conn := dial(t, srv, "user-1")
	defer conn.Close()

	msgType, content := readMessage(t, conn)
	if msgType != session.TypeAIMessage || content != "안녕하세요!" {
		t.Fatalf("expected greeting, got %s:%s", msgType, content)
	}

	frame := base64.StdEncoding.EncodeToString([]byte("wav-bytes"))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	msgType, content = readMessage(t, conn)
	if msgType != session.TypeUserMessage || content != "오늘 기분이 좋아" {
		t.Fatalf("expected user echo, got %s:%s", msgType, content)
	}
	msgType, content = readMessage(t, conn)
	if msgType != session.TypeAIMessage || content != "기분이 좋으시다니 다행이에요." {
		t.Fatalf("expected reply, got %s:%s", msgType, content)
	}
}

func TestWebSocketDisconnectFlushesMemory(t *testing.T) {
	upserter := &recordingUpserter{}
	srv := newTestServer(t, upserter)

	conn := dial(t, srv, "user-1")
	readMessage(t, conn)
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(upserter.snapshot()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	units := upserter.snapshot()
	if len(units) != 1 {
		t.Fatalf("expected one flushed unit, got %d", len(units))
	}
	unit := units[0]
	if unit.OwnerID != "user-1" {
		t.Fatalf("unexpected owner %q", unit.OwnerID)
	}
	if unit.Kind != memorymodel.KindUtterance {
		t.Fatalf("greeting-only session must flush as utterance, got %s", unit.Kind)
	}
	if unit.Text != "AI: 안녕하세요!" {
		t.Fatalf("unexpected flushed text %q", unit.Text)
	}
}

func TestWebSocketMissingUserID(t *testing.T) {
	srv := newTestServer(t, &recordingUpserter{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatal("expected dial to fail without a userID")
	}
}
