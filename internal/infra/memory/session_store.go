package memory

import (
	"context"
	"encoding/json"
	"sync"

	"party-trivia-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Records
// are kept as serialized JSON so load behaves exactly like the durable
// stores: a record that no longer parses is reported absent.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string][]byte),
	}
}

func (s *SessionStore) Load(_ context.Context, key string) (domain.Session, bool, error) {
	s.mu.RLock()
	raw, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, false, nil
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, false, nil
	}
	return session, true, nil
}

func (s *SessionStore) Save(_ context.Context, key string, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

// Put stores a raw record verbatim, for tests exercising malformed data.
func (s *SessionStore) Put(key string, raw []byte) {
	s.mu.Lock()
	s.sessions[key] = raw
	s.mu.Unlock()
}
