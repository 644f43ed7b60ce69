// Package service owns the application lifecycle: the draft → submitted →
// resolved state machine, submission-id assignment, the status event trail,
// step answers, and compliance snapshots.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"sevasetu/internal/application/models"
	"sevasetu/internal/application/store"
	"sevasetu/internal/audit"
	"sevasetu/internal/platform/metrics"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

// Store is the application persistence port. Submit and SetStatus carry the
// compare-and-swap guard; everything else is plain CRUD.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context, filter store.ListFilter) ([]models.Application, error)
	Submit(ctx context.Context, applicationID id.ApplicationID, submissionID string, now time.Time) error
	SetStatus(ctx context.Context, applicationID id.ApplicationID, from, to models.Status, now time.Time) error
	UpsertStep(ctx context.Context, step *models.StepAnswer) error
	ListSteps(ctx context.Context, applicationID id.ApplicationID) ([]models.StepAnswer, error)
	AppendEvent(ctx context.Context, event *models.StatusEvent) error
	ListEvents(ctx context.Context, applicationID id.ApplicationID) ([]models.StatusEvent, error)
	CreateSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	FindSnapshot(ctx context.Context, snapshotID id.SnapshotID) (*models.Snapshot, error)
}

// ConsentChecker validates the consent reference presented at submit time.
type ConsentChecker interface {
	Exists(ctx context.Context, consentID id.ConsentID) (bool, error)
}

// EventSink receives successfully appended status events, e.g. the SSE hub.
type EventSink interface {
	Publish(event models.StatusEvent)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store    Store
	consents ConsentChecker
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
	sink     EventSink
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.sink = sink }
}

func New(st Store, consents ConsentChecker, opts ...Option) *Service {
	s := &Service{
		store:    st,
		consents: consents,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a draft application. Drafts are created by the service-catalog
// flow before the citizen starts answering steps.
func (s *Service) Create(ctx context.Context, citizenID id.CitizenID, familyID, serviceRef string, meta models.Meta) (*models.Application, error) {
	app, err := models.New(id.NewApplicationID(), citizenID, familyID, serviceRef, meta, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "service reference is required")
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}
	return app, nil
}

// Get loads one application.
func (s *Service) Get(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

// List is the admin dashboard query.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]models.Application, error) {
	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	return apps, nil
}

// SubmitResult reports the identifier handed to the citizen.
type SubmitResult struct {
	SubmissionID string `json:"submission_id"`
}

// Submit performs draft → submitted exactly once. The store-side guard on
// status = draft means a concurrent duplicate attempt observes zero affected
// rows and fails with Conflict instead of double-submitting; the winner's
// submission id is untouched.
func (s *Service) Submit(ctx context.Context, applicationID id.ApplicationID, consentID id.ConsentID) (*SubmitResult, error) {
	if consentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "consent is required to submit")
	}
	ok, err := s.consents.Exists(ctx, consentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify consent")
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "consent record not found")
	}

	now := requestcontext.Now(ctx)
	submissionID, err := models.NewSubmissionID(now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign submission id")
	}

	if err := s.store.Submit(ctx, applicationID, submissionID, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			if s.metrics != nil {
				s.metrics.SubmitConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "application not in draft status")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit application")
	}

	if s.metrics != nil {
		s.metrics.Submissions.Inc()
	}
	previous := models.StatusDraft
	s.recordTransition(ctx, applicationID, &previous, models.StatusSubmitted, nil, "")
	s.emit(ctx, audit.Event{
		Action:    audit.ActionApplicationSubmitted,
		SessionID: requestcontext.SessionID(ctx),
		Subject:   applicationID.String(),
		Detail:    submissionID,
	})
	return &SubmitResult{SubmissionID: submissionID}, nil
}

// AdminSetStatus performs an officer-driven transition. The caller's role
// gate lives in the admin middleware; this re-checks as defense at the
// service boundary because it is the last writer before the store.
func (s *Service) AdminSetStatus(ctx context.Context, applicationID id.ApplicationID, newStatus models.Status, actorID id.AdminID, remarks string) error {
	if requestcontext.AdminRole(ctx) == "view_only" {
		s.emit(ctx, audit.Event{
			Action:  audit.ActionForbiddenWrite,
			ActorID: actorID,
			Subject: applicationID.String(),
		})
		return dErrors.New(dErrors.CodeForbidden, "role may not change application status")
	}
	if _, err := models.ParseStatus(string(newStatus)); err != nil {
		return err
	}

	app, err := s.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if !models.CanTransition(app.Status, newStatus) {
		if app.Status.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "application already resolved")
		}
		return dErrors.New(dErrors.CodeConflict, "status transition not allowed")
	}

	now := requestcontext.Now(ctx)
	if err := s.store.SetStatus(ctx, applicationID, app.Status, newStatus, now); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "application not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			// Lost the race to another transition.
			return dErrors.New(dErrors.CodeConflict, "status transition not allowed")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set application status")
	}

	previous := app.Status
	s.recordTransition(ctx, applicationID, &previous, newStatus, &actorID, remarks)
	s.emit(ctx, audit.Event{
		Action:  audit.ActionStatusChanged,
		ActorID: actorID,
		Subject: applicationID.String(),
		Detail:  string(newStatus),
	})
	return nil
}

// recordTransition appends the StatusEvent for a transition that has already
// been committed. The append is best-effort: a failure is logged, never
// propagated, because the status change must not roll back.
func (s *Service) recordTransition(ctx context.Context, applicationID id.ApplicationID, previous *models.Status, next models.Status, actor *id.AdminID, remarks string) {
	event := models.NewStatusEvent(applicationID, previous, next, actor, remarks, requestcontext.Now(ctx))
	if err := s.store.AppendEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "status event append failed",
			"application_id", applicationID.String(),
			"new_status", string(next),
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.StatusTransitions.WithLabelValues(string(next)).Inc()
	}
	if s.sink != nil {
		s.sink.Publish(*event)
	}
}

// SaveStep upserts one answer and advances current_step. Idempotent: saving
// the same step id replaces the answer in place.
func (s *Service) SaveStep(ctx context.Context, applicationID id.ApplicationID, stepID, answer string) error {
	if strings.TrimSpace(stepID) == "" {
		return dErrors.New(dErrors.CodeValidation, "step id is required")
	}
	step := &models.StepAnswer{
		ApplicationID: applicationID,
		StepID:        stepID,
		Answer:        answer,
		UpdatedAt:     requestcontext.Now(ctx),
	}
	if err := s.store.UpsertStep(ctx, step); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "application not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save step")
	}
	return nil
}

// GetSteps lists the answers saved so far.
func (s *Service) GetSteps(ctx context.Context, applicationID id.ApplicationID) ([]models.StepAnswer, error) {
	steps, err := s.store.ListSteps(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list steps")
	}
	return steps, nil
}

// Snapshot freezes the application plus its steps for compliance. The live
// row is never touched.
func (s *Service) Snapshot(ctx context.Context, applicationID id.ApplicationID) (*models.Snapshot, error) {
	app, err := s.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	steps, err := s.GetSteps(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	snapshot := models.NewSnapshot(id.NewSnapshotID(), app, steps, requestcontext.Now(ctx))
	if err := s.store.CreateSnapshot(ctx, snapshot); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create snapshot")
	}
	s.emit(ctx, audit.Event{
		Action:  audit.ActionSnapshotTaken,
		Subject: applicationID.String(),
		Detail:  snapshot.ID.String(),
	})
	return snapshot, nil
}

// Timeline returns the ordered status event trail.
func (s *Service) Timeline(ctx context.Context, applicationID id.ApplicationID) ([]models.StatusEvent, error) {
	events, err := s.store.ListEvents(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load timeline")
	}
	return events, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
