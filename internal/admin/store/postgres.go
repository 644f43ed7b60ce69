package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sevasetu/internal/admin/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
	"sevasetu/pkg/requestcontext"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateAdmin(ctx context.Context, admin *models.AdminUser) error {
	const query = `
		INSERT INTO admin_users (id, email, password_hash, role, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(admin.ID),
		strings.ToLower(admin.Email),
		admin.PasswordHash,
		string(admin.Role),
		admin.Active,
		admin.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

const selectAdmin = `
	SELECT id, email, password_hash, role, is_active, created_at
	FROM admin_users
`

func (s *Postgres) FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	return s.findAdmin(ctx, selectAdmin+` WHERE email = $1`, strings.ToLower(email))
}

func (s *Postgres) FindAdminByID(ctx context.Context, adminID id.AdminID) (*models.AdminUser, error) {
	return s.findAdmin(ctx, selectAdmin+` WHERE id = $1`, uuid.UUID(adminID))
}

func (s *Postgres) findAdmin(ctx context.Context, query string, arg any) (*models.AdminUser, error) {
	var (
		admin models.AdminUser
		aid   uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&aid, &admin.Email, &admin.PasswordHash, &admin.Role, &admin.Active, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	admin.ID = id.AdminID(aid)
	return &admin, nil
}

func (s *Postgres) CreateSession(ctx context.Context, session *models.AdminSession) error {
	const query = `
		INSERT INTO admin_sessions (token, admin_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.Token,
		uuid.UUID(session.AdminID),
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create admin session: %w", err)
	}
	return nil
}

func (s *Postgres) FindSession(ctx context.Context, token string) (*models.AdminSession, error) {
	const query = `
		SELECT token, admin_id, created_at, expires_at
		FROM admin_sessions
		WHERE token = $1
	`
	var (
		session models.AdminSession
		aid     uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, token).
		Scan(&session.Token, &aid, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin session: %w", err)
	}
	// Expiry is compared in Go against the request clock, matching the
	// memory store, rather than against the database's now().
	if session.Expired(requestcontext.Now(ctx)) {
		return nil, sentinel.ErrExpired
	}
	session.AdminID = id.AdminID(aid)
	return &session, nil
}

func (s *Postgres) DeleteSession(ctx context.Context, token string) error {
	const query = `DELETE FROM admin_sessions WHERE token = $1`
	if _, err := s.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}
