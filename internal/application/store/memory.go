// Package store persists applications, step answers, status events, and
// snapshots. Both backends push the draft-guard compare-and-swap into the
// store so concurrent submits can never both succeed.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sevasetu/internal/application/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	apps      map[id.ApplicationID]models.Application
	steps     map[id.ApplicationID]map[string]models.StepAnswer
	events    map[id.ApplicationID][]models.StatusEvent
	snapshots map[id.SnapshotID]models.Snapshot
}

func NewInMemory() *InMemory {
	return &InMemory{
		apps:      make(map[id.ApplicationID]models.Application),
		steps:     make(map[id.ApplicationID]map[string]models.StepAnswer),
		events:    make(map[id.ApplicationID][]models.StatusEvent),
		snapshots: make(map[id.SnapshotID]models.Snapshot),
	}
}

func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = *app
	return nil
}

func (s *InMemory) FindByID(_ context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := app
	return &cp, nil
}

func (s *InMemory) List(_ context.Context, filter ListFilter) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Application
	for _, app := range s.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if !filter.CitizenID.IsNil() && app.CitizenID != filter.CitizenID {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Submit performs the draft → submitted transition as a compare-and-swap.
// A non-draft row reports ErrInvalidState so a concurrent duplicate submit
// surfaces as a conflict, never a double submission.
func (s *InMemory) Submit(_ context.Context, applicationID id.ApplicationID, submissionID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if app.Status != models.StatusDraft {
		return sentinel.ErrInvalidState
	}
	app.Status = models.StatusSubmitted
	app.SubmissionID = submissionID
	app.UpdatedAt = now
	s.apps[applicationID] = app
	return nil
}

// SetStatus writes the new status guarded by the expected current status,
// mirroring the conditional UPDATE the relational backend uses.
func (s *InMemory) SetStatus(_ context.Context, applicationID id.ApplicationID, from, to models.Status, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if app.Status != from {
		return sentinel.ErrInvalidState
	}
	app.Status = to
	app.UpdatedAt = now
	s.apps[applicationID] = app
	return nil
}

func (s *InMemory) UpsertStep(_ context.Context, step *models.StepAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[step.ApplicationID]
	if !ok {
		return sentinel.ErrNotFound
	}
	byStep, ok := s.steps[step.ApplicationID]
	if !ok {
		byStep = make(map[string]models.StepAnswer)
		s.steps[step.ApplicationID] = byStep
	}
	byStep[step.StepID] = *step
	app.CurrentStep = step.StepID
	app.UpdatedAt = step.UpdatedAt
	s.apps[step.ApplicationID] = app
	return nil
}

func (s *InMemory) ListSteps(_ context.Context, applicationID id.ApplicationID) ([]models.StepAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.StepAnswer
	for _, step := range s.steps[applicationID] {
		out = append(out, step)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (s *InMemory) AppendEvent(_ context.Context, event *models.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ApplicationID] = append(s.events[event.ApplicationID], *event)
	return nil
}

func (s *InMemory) ListEvents(_ context.Context, applicationID id.ApplicationID) ([]models.StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[applicationID]
	out := make([]models.StatusEvent, len(events))
	copy(out, events)
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

func (s *InMemory) CreateSnapshot(_ context.Context, snapshot *models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.snapshots[snapshot.ID]; exists {
		return sentinel.ErrConflict
	}
	s.snapshots[snapshot.ID] = *snapshot
	return nil
}

func (s *InMemory) FindSnapshot(_ context.Context, snapshotID id.SnapshotID) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.snapshots[snapshotID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := snapshot
	return &cp, nil
}
