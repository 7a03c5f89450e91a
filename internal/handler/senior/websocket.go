// Package senior exposes the voice conversation WebSocket for the
// companion device.
package senior

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/tripot-app/backend/internal/service/memory"
	"github.com/tripot-app/backend/internal/service/session"
	"github.com/tripot-app/backend/internal/service/turn"
)

// flushTimeout bounds the memory flush after the socket is gone. The
// flush runs on a detached context so a dead connection cannot cancel it.
const flushTimeout = 30 * time.Second

// Handler upgrades conversation connections and feeds audio frames into
// the turn pipeline.
type Handler struct {
	registry     *session.Registry
	orchestrator *turn.Orchestrator
	compiler     *memory.Compiler
	greeting     string
	upgrader     websocket.Upgrader
}

// New creates the WebSocket handler.
func New(registry *session.Registry, orchestrator *turn.Orchestrator, compiler *memory.Compiler, greeting string) *Handler {
	return &Handler{
		registry:     registry,
		orchestrator: orchestrator,
		compiler:     compiler,
		greeting:     greeting,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the conversation socket.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{userID}", h.handleWebSocket)
}

type outgoingMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// wsSender serializes writes onto one connection. gorilla/websocket
// allows a single concurrent writer.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(msgType, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(outgoingMessage{Type: msgType, Content: content})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "userID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed user=%s: %v", userID, err)
		return
	}
	defer conn.Close()

	sess := h.registry.Open(userID, &wsSender{conn: conn}, h.greeting)
	defer h.finishSession(sess)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[ws] read failed user=%s: %v", userID, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			log.Printf("[ws] ignoring non-text frame user=%s type=%d", userID, messageType)
			continue
		}

		// One frame carries one base64-encoded audio payload. Turns run
		// sequentially; the next frame waits for this reply.
		h.orchestrator.ProcessAudio(r.Context(), sess, string(payload))
	}
}

// finishSession closes the session and, if this caller won the close,
// compiles the transcript into long-term memory.
func (h *Handler) finishSession(sess *session.Session) {
	lines, ok := h.registry.Close(sess)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	h.compiler.Flush(ctx, sess.OwnerID, lines)
}
