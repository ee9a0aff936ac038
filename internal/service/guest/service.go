package guest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/akuru-app/akuru/internal/model/chat"
	"github.com/akuru-app/akuru/internal/model/guest"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("guest session not found")

// defaultTTL is how long an idle guest session survives between requests.
const defaultTTL = 2 * time.Hour

// Service keeps try-first conversations in memory, keyed by the session id
// carried in the guest cookie. Nothing here touches the relational store.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*guest.Session
	nextID   map[string]int64
	ttl      time.Duration
	now      func() time.Time
}

// NewService bootstraps the in-memory guest session registry.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*guest.Session),
		nextID:   make(map[string]int64),
		ttl:      defaultTTL,
		now:      time.Now,
	}
}

// CreateSession provisions a fresh guest session.
func (s *Service) CreateSession(_ context.Context) (guest.Session, error) {
	session := &guest.Session{
		ID:         uuid.NewString(),
		Messages:   make([]chat.Message, 0, 16),
		CreatedAt:  s.now().UTC(),
		LastActive: s.now().UTC(),
	}

	s.mu.Lock()
	s.sweepLocked()
	s.sessions[session.ID] = session
	s.nextID[session.ID] = 1
	s.mu.Unlock()

	return *session, nil
}

// AppendMessage adds one turn to the session transcript.
func (s *Service) AppendMessage(_ context.Context, sessionID, role, content string) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Message{}, ErrSessionNotFound
	}

	msg := chat.Message{
		ID:        s.nextID[sessionID],
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	s.nextID[sessionID]++
	session.Messages = append(session.Messages, msg)
	session.LastActive = s.now().UTC()
	return msg, nil
}

// Messages returns a copy of the session transcript.
func (s *Service) Messages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(session.Messages))
	copy(copied, session.Messages)
	return copied, nil
}

// Reset empties the transcript but keeps the session id, so the cookie
// stays valid. Resetting an unknown session recreates it under the same id.
func (s *Service) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		session = &guest.Session{ID: sessionID, CreatedAt: s.now().UTC()}
		s.sessions[sessionID] = session
		s.nextID[sessionID] = 1
	}
	session.Messages = session.Messages[:0]
	session.LastActive = s.now().UTC()
	return nil
}

// Exists reports whether the session is still alive.
func (s *Service) Exists(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// sweepLocked drops sessions idle past the TTL. Callers hold the write lock.
func (s *Service) sweepLocked() {
	cutoff := s.now().Add(-s.ttl)
	for id, session := range s.sessions {
		if session.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.nextID, id)
		}
	}
}
