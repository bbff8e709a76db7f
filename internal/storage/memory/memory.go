// Package memory is an in-process auth.SessionStore. Sessions are lost
// on restart.
package memory

import (
	"context"
	"sync"

	"kern/internal/auth"
)

// Store keeps sessions in a map.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]auth.Session
}

// New creates an empty store.
func New() *Store {
	return &Store{sessions: make(map[string]auth.Session)}
}

// Get returns a copy of the session stored under key.
func (s *Store) Get(_ context.Context, key string) (*auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &sess, nil
}

// Put stores a copy of session.
func (s *Store) Put(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Key] = *session
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
	return nil
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
