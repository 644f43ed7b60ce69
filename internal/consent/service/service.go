// Package service records and reads consent grants.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"sevasetu/internal/audit"
	"sevasetu/internal/consent/models"
	"sevasetu/internal/platform/metrics"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

// Store is the consent ledger port.
type Store interface {
	Append(ctx context.Context, log *models.ConsentLog) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*models.ConsentLog, error)
	ListBySession(ctx context.Context, sessionID id.SessionID) ([]models.ConsentLog, error)
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]models.ConsentLog, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store   Store
	logger  *slog.Logger
	auditor AuditPublisher
	metrics *metrics.Metrics
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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordForSession appends a portal-wide data-use grant anchored to the
// caller's session.
func (s *Service) RecordForSession(ctx context.Context, sessionID id.SessionID, consentType models.Type, purpose models.Purpose, userAgent string) (*models.ConsentLog, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no session token presented")
	}
	sid := sessionID
	return s.record(ctx, &sid, nil, consentType, purpose, userAgent)
}

// RecordForApplication appends a scheme-specific grant anchored to an
// application.
func (s *Service) RecordForApplication(ctx context.Context, applicationID id.ApplicationID, consentType models.Type, purpose models.Purpose, userAgent string) (*models.ConsentLog, error) {
	if applicationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	aid := applicationID
	return s.record(ctx, nil, &aid, consentType, purpose, userAgent)
}

func (s *Service) record(ctx context.Context, sessionID *id.SessionID, applicationID *id.ApplicationID, consentType models.Type, purpose models.Purpose, userAgent string) (*models.ConsentLog, error) {
	log, err := models.New(id.NewConsentID(), sessionID, applicationID, consentType, purpose,
		requestcontext.ClientIP(ctx), userAgent, requestcontext.Now(ctx))
	if err != nil {
		var tagged *dErrors.Error
		if errors.As(err, &tagged) && tagged.Code == dErrors.CodeInvariantViolation {
			return nil, dErrors.New(dErrors.CodeValidation, tagged.Message)
		}
		return nil, err
	}
	if citizenID := requestcontext.CitizenID(ctx); !citizenID.IsNil() {
		cid := citizenID
		log.CitizenID = &cid
	}

	if err := s.store.Append(ctx, log); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record consent")
	}
	if s.metrics != nil {
		s.metrics.ConsentsRecorded.Inc()
	}

	event := audit.Event{Action: audit.ActionConsentRecorded, Subject: log.ID.String()}
	if sessionID != nil {
		event.SessionID = *sessionID
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
	return log, nil
}

// Get loads a single ledger entry.
func (s *Service) Get(ctx context.Context, consentID id.ConsentID) (*models.ConsentLog, error) {
	log, err := s.store.FindByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "consent record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return log, nil
}

// Exists reports whether a ledger entry is present. The submission gate
// calls this to validate the consent reference before transitioning.
func (s *Service) Exists(ctx context.Context, consentID id.ConsentID) (bool, error) {
	_, err := s.store.FindByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check consent")
	}
	return true, nil
}

// ListBySession returns the session's grants in grant order.
func (s *Service) ListBySession(ctx context.Context, sessionID id.SessionID) ([]models.ConsentLog, error) {
	logs, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	return logs, nil
}

// HasSessionConsent reports whether the session has at least one grant. Used
// by the submission gate.
func (s *Service) HasSessionConsent(ctx context.Context, sessionID id.SessionID) (bool, error) {
	logs, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check consent")
	}
	return len(logs) > 0, nil
}
