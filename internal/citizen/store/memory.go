// Package store provides citizen persistence backends.
package store

import (
	"context"
	"sync"
	"time"

	"sevasetu/internal/citizen/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// InMemory is a map-backed citizen store enforcing phone uniqueness the way
// the Postgres unique index does.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.CitizenID]*models.Citizen
	byPhone map[string]id.CitizenID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:    make(map[id.CitizenID]*models.Citizen),
		byPhone: make(map[string]id.CitizenID),
	}
}

func (s *InMemory) Create(_ context.Context, citizen *models.Citizen) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPhone[citizen.Phone]; exists {
		return sentinel.ErrConflict
	}
	cp := *citizen
	s.byID[citizen.ID] = &cp
	s.byPhone[citizen.Phone] = citizen.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	citizen, ok := s.byID[citizenID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *citizen
	return &cp, nil
}

func (s *InMemory) FindByPhone(_ context.Context, phone string) (*models.Citizen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	citizenID, ok := s.byPhone[phone]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[citizenID]
	return &cp, nil
}

func (s *InMemory) TouchLastLogin(_ context.Context, citizenID id.CitizenID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	citizen, ok := s.byID[citizenID]
	if !ok {
		return sentinel.ErrNotFound
	}
	citizen.LastLogin = at
	return nil
}
