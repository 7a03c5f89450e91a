// Package session owns the process-wide registry of live conversation
// sessions. A session exists only between connect and disconnect; its
// transcript is handed off exactly once at close.
package session

import (
	"log"
	"sync"

	chatmodel "github.com/tripot-app/backend/internal/model/chat"
)

// Sender delivers a typed message to the connected client.
type Sender interface {
	Send(msgType, content string) error
}

// Message types emitted on the session channel.
const (
	TypeAIMessage   = "ai_message"
	TypeUserMessage = "user_message"
)

// Session is one live conversation. All mutation goes through the
// registry; handlers only hold the pointer for identification and
// delivery.
type Session struct {
	OwnerID string

	mu     sync.Mutex
	lines  []chatmodel.Line
	sender Sender
	closed bool
}

// Send delivers a message to this session's client. Sends after close
// are dropped.
func (s *Session) Send(msgType, content string) error {
	s.mu.Lock()
	sender := s.sender
	closed := s.closed
	s.mu.Unlock()

	if closed || sender == nil {
		return nil
	}
	return sender.Send(msgType, content)
}

// Registry maps owner ids to their live session. Entries are
// independent; the lock only guards the map itself.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open creates a session for the owner and emits the greeting as the
// first transcript line. A new connection for the same owner replaces
// any prior live entry; it never merges with it.
func (r *Registry) Open(ownerID string, sender Sender, greeting string) *Session {
	sess := &Session{OwnerID: ownerID, sender: sender}

	r.mu.Lock()
	if prior, ok := r.sessions[ownerID]; ok {
		prior.mu.Lock()
		prior.closed = true
		prior.mu.Unlock()
		log.Printf("[session] replacing live session owner=%s", ownerID)
	}
	r.sessions[ownerID] = sess
	r.mu.Unlock()

	if err := sess.Send(TypeAIMessage, greeting); err != nil {
		log.Printf("[session] greeting delivery failed owner=%s: %v", ownerID, err)
	}
	sess.mu.Lock()
	sess.lines = append(sess.lines, chatmodel.AgentLine(greeting))
	sess.mu.Unlock()

	log.Printf("[session] opened owner=%s", ownerID)
	return sess
}

// AppendTurn appends a completed exchange to the transcript atomically:
// either both lines land, or (when the session already closed mid-turn)
// neither does. Partial turns are never half-appended.
func (r *Registry) AppendTurn(sess *Session, userText, agentText string) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return false
	}
	sess.lines = append(sess.lines, chatmodel.UserLine(userText), chatmodel.AgentLine(agentText))
	return true
}

// Close removes the owner's session and returns its transcript for the
// memory flush. Close is idempotent: only the first caller receives the
// transcript, every later (or concurrent) caller observes ok=false.
// Callers must check ok before flushing so the flush runs exactly once.
func (r *Registry) Close(sess *Session) ([]chatmodel.Line, bool) {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, false
	}
	sess.closed = true
	lines := sess.lines
	sess.lines = nil
	sess.mu.Unlock()

	r.mu.Lock()
	if current, ok := r.sessions[sess.OwnerID]; ok && current == sess {
		delete(r.sessions, sess.OwnerID)
	}
	r.mu.Unlock()

	log.Printf("[session] closed owner=%s lines=%d", sess.OwnerID, len(lines))
	return lines, true
}

// Active reports whether the owner currently has a live session.
func (r *Registry) Active(ownerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[ownerID]
	return ok
}
