// Package store provides consent ledger persistence. Both backends expose
// append and read only; the ledger is never mutated in place.
package store

import (
	"context"
	"sort"
	"sync"

	"sevasetu/internal/consent/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

type InMemory struct {
	mu   sync.RWMutex
	byID map[id.ConsentID]models.ConsentLog
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.ConsentID]models.ConsentLog)}
}

func (s *InMemory) Append(_ context.Context, log *models.ConsentLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[log.ID]; exists {
		return sentinel.ErrConflict
	}
	s.byID[log.ID] = *log
	return nil
}

func (s *InMemory) FindByID(_ context.Context, consentID id.ConsentID) (*models.ConsentLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.byID[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := log
	return &cp, nil
}

func (s *InMemory) ListBySession(_ context.Context, sessionID id.SessionID) ([]models.ConsentLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConsentLog
	for _, log := range s.byID {
		if log.SessionID != nil && *log.SessionID == sessionID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (s *InMemory) ListByApplication(_ context.Context, applicationID id.ApplicationID) ([]models.ConsentLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConsentLog
	for _, log := range s.byID {
		if log.ApplicationID != nil && *log.ApplicationID == applicationID {
			out = append(out, log)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}
