// Package service implements the session repository operations: bootstrap,
// lookup, language preference, deactivation.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"sevasetu/internal/audit"
	"sevasetu/internal/platform/metrics"
	"sevasetu/internal/session/models"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

// Store is the session persistence port.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	SetLanguage(ctx context.Context, sessionID id.SessionID, lang id.Language) error
	Link(ctx context.Context, sessionID id.SessionID, citizenID id.CitizenID, familyID string) (id.CitizenID, error)
	Deactivate(ctx context.Context, sessionID id.SessionID) error
}

// AuditPublisher decouples the service from the audit pipeline wiring.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service owns anonymous session lifecycle. Identity linking is initiated by
// the citizen service but lands here because the binding lives on the session
// row.
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

// Create issues a new anonymous session for the device observed on this
// request. Device metadata comes from context (set by the device middleware).
func (s *Service) Create(ctx context.Context, deviceID string) (*models.Session, error) {
	session, err := models.New(
		id.NewSessionID(),
		deviceID,
		requestcontext.DeviceName(ctx),
		requestcontext.ClientIP(ctx),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:    audit.ActionSessionCreated,
		SessionID: session.ID,
		Detail:    session.DeviceName,
	})
	return session, nil
}

// Get loads a session by bearer token value.
func (s *Service) Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.store.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	return session, nil
}

// SetLanguage records the citizen's language preference.
func (s *Service) SetLanguage(ctx context.Context, sessionID id.SessionID, raw string) (id.Language, error) {
	lang, err := id.ParseLanguage(raw)
	if err != nil {
		return "", err
	}

	if err := s.store.SetLanguage(ctx, sessionID, lang); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return "", dErrors.New(dErrors.CodeNotFound, "session not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return "", dErrors.New(dErrors.CodeConflict, "session is no longer active")
		default:
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to set language")
		}
	}

	s.emit(ctx, audit.Event{
		Action:    audit.ActionLanguageSet,
		SessionID: sessionID,
		Detail:    lang.String(),
	})
	return lang, nil
}

// Link binds the session to a verified citizen. Replacing an existing binding
// to a different citizen is allowed but recorded as an explicit re-link so it
// can never happen silently.
func (s *Service) Link(ctx context.Context, sessionID id.SessionID, citizenID id.CitizenID, familyID string) error {
	previous, err := s.store.Link(ctx, sessionID, citizenID, familyID)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeConflict, "session is no longer active")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to link session")
		}
	}

	action := audit.ActionSessionLinked
	if !previous.IsNil() && previous != citizenID {
		action = audit.ActionSessionRelinked
		s.logger.WarnContext(ctx, "session re-linked to a different citizen",
			"session_id", sessionID.String(),
			"previous_citizen_id", previous.String(),
			"citizen_id", citizenID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.emit(ctx, audit.Event{
		Action:    action,
		SessionID: sessionID,
		CitizenID: citizenID,
	})
	return nil
}

// Deactivate retires a session; subsequent mutations against it fail.
func (s *Service) Deactivate(ctx context.Context, sessionID id.SessionID) error {
	if err := s.store.Deactivate(ctx, sessionID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "session not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate session")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
