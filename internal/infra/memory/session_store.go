package memory

import (
	"sync"

	"trivia-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Each entry is one participant's attempt, keyed by connection session id.
type SessionStore struct {
	mu       sync.RWMutex
	settings app.Settings
	sessions map[string]*app.Session
}

func NewSessionStore(settings app.Settings) *SessionStore {
	return &SessionStore{
		settings: settings,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) GetOrCreate(sessionID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session
	}
	session := app.NewSession(s.settings)
	s.sessions[sessionID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
