// Package service implements identity linking: registering or logging in a
// phone-verified citizen and binding the verified identity to the caller's
// anonymous session.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"sevasetu/internal/audit"
	"sevasetu/internal/citizen/credential"
	"sevasetu/internal/citizen/models"
	"sevasetu/internal/platform/metrics"
	"sevasetu/internal/registry"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

// Store is the citizen persistence port.
type Store interface {
	Create(ctx context.Context, citizen *models.Citizen) error
	FindByID(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error)
	FindByPhone(ctx context.Context, phone string) (*models.Citizen, error)
	TouchLastLogin(ctx context.Context, citizenID id.CitizenID, at time.Time) error
}

// SessionLinker binds a session to a citizen. Implemented by the session
// service; the binding lives on the session row, not here.
type SessionLinker interface {
	Link(ctx context.Context, sessionID id.SessionID, citizenID id.CitizenID, familyID string) error
}

// AuditPublisher decouples the service from audit pipeline wiring.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates registration, login, and session linking.
type Service struct {
	citizens Store
	sessions SessionLinker
	verifier *credential.Verifier
	registry registry.Lookup
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *metrics.Metrics
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

func WithRegistry(lookup registry.Lookup) Option {
	return func(s *Service) { s.registry = lookup }
}

func New(citizens Store, sessions SessionLinker, verifier *credential.Verifier, opts ...Option) *Service {
	s := &Service{
		citizens: citizens,
		sessions: sessions,
		verifier: verifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterOrLoginRequest carries the registration inputs.
type RegisterOrLoginRequest struct {
	Phone      string
	FamilyID   string
	Name       string
	Credential string
}

// RegisterOrLoginResult reports which path was taken.
type RegisterOrLoginResult struct {
	CitizenID  id.CitizenID `json:"citizen_id"`
	Registered bool         `json:"registered"`
}

// RegisterOrLogin verifies the phone-backed credential, then either logs in
// the existing citizen for that phone or registers a new one, and binds the
// caller's session to the citizen either way.
//
// The credential's verified phone must match the supplied phone after both
// are normalized to their last 10 digits; a mismatch is Forbidden, not
// Unauthorized: the credential itself is valid, it just doesn't prove the
// claimed number.
func (s *Service) RegisterOrLogin(ctx context.Context, req RegisterOrLoginRequest) (*RegisterOrLoginResult, error) {
	if strings.TrimSpace(req.Phone) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "phone is required")
	}

	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "no session token presented")
	}

	claims, err := s.verifier.Verify(req.Credential)
	if err != nil {
		return nil, err
	}

	phone, err := models.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	verifiedPhone, err := models.NormalizePhone(claims.Phone)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential carries no verified phone")
	}
	if phone != verifiedPhone {
		s.logger.WarnContext(ctx, "credential phone mismatch",
			"session_id", sessionID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.New(dErrors.CodeForbidden, "phone does not match verified credential")
	}

	now := requestcontext.Now(ctx)

	existing, err := s.citizens.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		// Login, not re-registration.
		if err := s.citizens.TouchLastLogin(ctx, existing.ID, now); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh last login")
		}
		if err := s.sessions.Link(ctx, sessionID, existing.ID, existing.FamilyID); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.CitizenLogins.Inc()
		}
		s.emit(ctx, audit.Event{
			Action:    audit.ActionCitizenLogin,
			SessionID: sessionID,
			CitizenID: existing.ID,
		})
		return &RegisterOrLoginResult{CitizenID: existing.ID}, nil

	case errors.Is(err, sentinel.ErrNotFound):
		citizen, err := models.New(id.NewCitizenID(), phone, req.FamilyID, req.Name, now)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return nil, dErrors.New(dErrors.CodeValidation, "name is required")
			}
			return nil, err
		}
		if err := s.citizens.Create(ctx, citizen); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Concurrent registration for the same phone: treat as login.
				return s.RegisterOrLogin(ctx, req)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create citizen")
		}
		if err := s.sessions.Link(ctx, sessionID, citizen.ID, citizen.FamilyID); err != nil {
			return nil, err
		}
		if s.metrics != nil {
			s.metrics.CitizensRegistered.Inc()
		}
		s.emit(ctx, audit.Event{
			Action:    audit.ActionCitizenRegistered,
			SessionID: sessionID,
			CitizenID: citizen.ID,
		})
		return &RegisterOrLoginResult{CitizenID: citizen.ID, Registered: true}, nil

	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up citizen")
	}
}

// LinkSession binds an existing anonymous session to an already verified
// citizen after out-of-band credential verification.
func (s *Service) LinkSession(ctx context.Context, sessionID id.SessionID, credentialToken string) (id.CitizenID, error) {
	if sessionID.IsNil() {
		return id.CitizenID{}, dErrors.New(dErrors.CodeBadRequest, "no session token presented")
	}

	claims, err := s.verifier.Verify(credentialToken)
	if err != nil {
		return id.CitizenID{}, err
	}
	phone, err := models.NormalizePhone(claims.Phone)
	if err != nil {
		return id.CitizenID{}, dErrors.New(dErrors.CodeUnauthorized, "credential carries no verified phone")
	}

	citizen, err := s.citizens.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.CitizenID{}, dErrors.New(dErrors.CodeUnauthorized, "no citizen registered for verified phone")
		}
		return id.CitizenID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up citizen")
	}

	if err := s.sessions.Link(ctx, sessionID, citizen.ID, citizen.FamilyID); err != nil {
		return id.CitizenID{}, err
	}
	if err := s.citizens.TouchLastLogin(ctx, citizen.ID, requestcontext.Now(ctx)); err != nil {
		return id.CitizenID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh last login")
	}
	return citizen.ID, nil
}

// Get loads a citizen by id.
func (s *Service) Get(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	citizen, err := s.citizens.FindByID(ctx, citizenID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "citizen not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load citizen")
	}
	return citizen, nil
}

// Profile joins the citizen with their registry household record. A registry
// outage degrades the profile to the local record instead of failing the
// request.
type Profile struct {
	Citizen *models.Citizen        `json:"citizen"`
	Family  *registry.FamilyRecord `json:"family,omitempty"`
}

func (s *Service) Profile(ctx context.Context, citizenID id.CitizenID) (*Profile, error) {
	citizen, err := s.Get(ctx, citizenID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{Citizen: citizen}
	if s.registry != nil && citizen.FamilyID != "" {
		family, err := s.registry.FindFamily(ctx, citizen.FamilyID)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				s.logger.WarnContext(ctx, "registry lookup failed",
					"family_id", citizen.FamilyID,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
		} else {
			profile.Family = family
		}
	}
	return profile, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, event)
	}
}
