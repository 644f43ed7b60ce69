// Package store persists staff accounts and their sessions.
package store

import (
	"context"
	"strings"
	"sync"

	"sevasetu/internal/admin/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

type InMemory struct {
	mu       sync.RWMutex
	byID     map[id.AdminID]models.AdminUser
	byEmail  map[string]id.AdminID
	sessions map[string]models.AdminSession
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[id.AdminID]models.AdminUser),
		byEmail:  make(map[string]id.AdminID),
		sessions: make(map[string]models.AdminSession),
	}
}

func (s *InMemory) CreateAdmin(_ context.Context, admin *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(admin.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	s.byID[admin.ID] = *admin
	s.byEmail[key] = admin.ID
	return nil
}

func (s *InMemory) FindAdminByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adminID, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	admin := s.byID[adminID]
	return &admin, nil
}

func (s *InMemory) FindAdminByID(_ context.Context, adminID id.AdminID) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.byID[adminID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &admin, nil
}

func (s *InMemory) CreateSession(_ context.Context, session *models.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = *session
	return nil
}

// FindSession resolves a live session. Expiry is a fact about the stored row,
// so a past expires_at surfaces as sentinel.ErrExpired rather than a found
// session the caller must re-check.
func (s *InMemory) FindSession(ctx context.Context, token string) (*models.AdminSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if session.Expired(requestcontext.Now(ctx)) {
		return nil, sentinel.ErrExpired
	}
	cp := session
	return &cp, nil
}

// ReplaceAdmin swaps an account in place. Test hook for state the service
// never writes, e.g. deactivation done by an operator.
func (s *InMemory) ReplaceAdmin(admin models.AdminUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[admin.ID] = admin
	s.byEmail[strings.ToLower(admin.Email)] = admin.ID
}

// DeleteSession removes the row; deleting an absent token is not an error so
// logout stays idempotent.
func (s *InMemory) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
