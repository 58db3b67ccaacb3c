package agent

import (
	"sync"

	"github.com/google/uuid"

	"github.com/kubewise/kubewise/internal/llm"
)

// SessionStore keeps per-session conversation history in memory so follow-up
// questions can reuse context. There is no persistence, a restart starts
// everyone fresh.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string][]llm.ChatMessage
	limit    int
}

// NewSessionStore creates a store that carries at most limit prior messages
// into each new query.
func NewSessionStore(limit int) *SessionStore {
	return &SessionStore{
		sessions: make(map[string][]llm.ChatMessage),
		limit:    limit,
	}
}

// Resolve returns the session id to use, minting a new one when the request
// did not carry one.
func (s *SessionStore) Resolve(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return uuid.NewString()
}

// History returns the most recent messages for a session, at most limit.
func (s *SessionStore) History(sessionID string) []llm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.sessions[sessionID]
	if len(history) > s.limit {
		history = history[len(history)-s.limit:]
	}
	return append([]llm.ChatMessage(nil), history...)
}

// Append records an exchange in a session's history. Only user and assistant
// text survives, tool traffic is per-query scratch.
func (s *SessionStore) Append(sessionID string, messages ...llm.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range messages {
		if msg.Role == llm.RoleUser || msg.Role == llm.RoleAssistant {
			s.sessions[sessionID] = append(s.sessions[sessionID], llm.ChatMessage{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}
}

// Clear drops a session's history.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
