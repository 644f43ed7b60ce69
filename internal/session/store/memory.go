// Package store provides session persistence backends: in-memory for tests,
// Postgres for the relational deployment, Redis where session reads must stay
// off the primary store.
package store

import (
	"context"
	"sync"

	"sevasetu/internal/session/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// InMemory is a map-backed session store. Mutation guards mirror the SQL
// implementations: writes against an inactive or missing session fail the
// same way.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[id.SessionID]*models.Session)}
}

func (s *InMemory) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *InMemory) SetLanguage(_ context.Context, sessionID id.SessionID, lang id.Language) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !session.Active {
		return sentinel.ErrInvalidState
	}
	session.Language = lang
	return nil
}

// Link binds the session to a citizen and returns the previously bound
// citizen, nil-ID when the session was anonymous.
func (s *InMemory) Link(_ context.Context, sessionID id.SessionID, citizenID id.CitizenID, familyID string) (id.CitizenID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return id.CitizenID{}, sentinel.ErrNotFound
	}
	if !session.Active {
		return id.CitizenID{}, sentinel.ErrInvalidState
	}
	previous := session.CitizenID
	session.CitizenID = citizenID
	session.FamilyID = familyID
	return previous, nil
}

func (s *InMemory) Deactivate(_ context.Context, sessionID id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	session.Active = false
	return nil
}
