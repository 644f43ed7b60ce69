package registry

import (
	"context"
	"sync"

	"sevasetu/pkg/platform/sentinel"
)

// Static is a map-backed Lookup for development and tests. The production
// adapter calls the government registry gateway; it conforms to the same
// interface and is wired in by deployment configuration.
type Static struct {
	mu      sync.RWMutex
	records map[string]FamilyRecord
}

func NewStatic() *Static {
	return &Static{records: make(map[string]FamilyRecord)}
}

// Put seeds a record.
func (s *Static) Put(record FamilyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.FamilyID] = record
}

func (s *Static) FindFamily(_ context.Context, familyID string) (*FamilyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[familyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := record
	return &cp, nil
}
