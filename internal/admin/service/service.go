// Package service implements the staff session lifecycle: credentialed
// login, expiry-at-read session resolution, and idempotent logout.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sevasetu/internal/admin/models"
	"sevasetu/internal/audit"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

// Store is the admin persistence port.
type Store interface {
	CreateAdmin(ctx context.Context, admin *models.AdminUser) error
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	FindAdminByID(ctx context.Context, adminID id.AdminID) (*models.AdminUser, error)
	CreateSession(ctx context.Context, session *models.AdminSession) error
	FindSession(ctx context.Context, token string) (*models.AdminSession, error)
	DeleteSession(ctx context.Context, token string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	store      Store
	sessionTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
	auditor    AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(store Store, sessionTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:      store,
		sessionTTL: sessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAdmin registers a staff account with a bcrypt password hash. Used by
// the startup seed and by super_admin provisioning.
func (s *Service) CreateAdmin(ctx context.Context, email, password string, role models.Role) (*models.AdminUser, error) {
	if password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "password is required")
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	admin, err := models.NewAdminUser(id.NewAdminID(), email, string(hash), role, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "email is required")
	}

	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "admin email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin")
	}
	return admin, nil
}

// Login verifies the credentials and issues a staff session. Unknown email,
// wrong password, and deactivated account all fail identically so the
// response does not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*models.AdminSession, *models.AdminUser, error) {
	admin, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, s.loginRejected(ctx, email)
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}
	if !admin.Active {
		return nil, nil, s.loginRejected(ctx, email)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, nil, s.loginRejected(ctx, email)
	}

	session, err := models.NewAdminSession(admin.ID, s.sessionTTL, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint session token")
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create admin session")
	}

	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Action:  audit.ActionAdminLogin,
			ActorID: admin.ID,
			Subject: admin.Email,
		})
	}
	return session, admin, nil
}

func (s *Service) loginRejected(ctx context.Context, email string) error {
	s.logger.WarnContext(ctx, "admin login rejected",
		"email", email,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{
			Action:  audit.ActionAdminLoginFailed,
			Subject: email,
		})
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// CurrentUser resolves the token to an active admin, checking expiry at read
// time. Missing, unknown, and expired tokens are indistinguishable to the
// caller: all return nil.
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.AdminUser, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.store.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin session")
	}

	admin, err := s.store.FindAdminByID(ctx, session.AdminID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load admin")
	}
	if !admin.Active {
		return nil, nil
	}
	return admin, nil
}

// Logout deletes the session row. Idempotent: logging out an already absent
// token succeeds.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.DeleteSession(ctx, token); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete admin session")
	}
	if s.auditor != nil {
		s.auditor.Emit(ctx, audit.Event{Action: audit.ActionAdminLogout})
	}
	return nil
}

// Seed creates the bootstrap super_admin if it does not exist yet.
func (s *Service) Seed(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.CreateAdmin(ctx, email, password, models.RoleSuperAdmin)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
		return err
	}
	return nil
}
