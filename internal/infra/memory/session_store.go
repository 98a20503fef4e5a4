package memory

import (
	"context"
	"sync"
)

// SessionStore is an in-process implementation of host.SessionStore.
type SessionStore struct {
	mu sync.RWMutex
	id string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Get(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.id != "", nil
}

func (s *SessionStore) Set(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = sessionID
	return nil
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	return nil
}
