package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sevasetu/internal/citizen/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// Postgres persists citizens. The unique index on phone is the authority for
// duplicate detection; unique violations surface as sentinel.ErrConflict.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, citizen *models.Citizen) error {
	const query = `
		INSERT INTO citizens (id, phone, family_id, name, verified, last_login, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(citizen.ID),
		citizen.Phone,
		nullString(citizen.FamilyID),
		citizen.Name,
		citizen.Verified,
		citizen.LastLogin,
		citizen.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create citizen: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, citizenID id.CitizenID) (*models.Citizen, error) {
	const query = `
		SELECT id, phone, family_id, name, verified, last_login, created_at
		FROM citizens
		WHERE id = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(citizenID)))
}

func (s *Postgres) FindByPhone(ctx context.Context, phone string) (*models.Citizen, error) {
	const query = `
		SELECT id, phone, family_id, name, verified, last_login, created_at
		FROM citizens
		WHERE phone = $1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, phone))
}

func (s *Postgres) TouchLastLogin(ctx context.Context, citizenID id.CitizenID, at time.Time) error {
	const query = `
		UPDATE citizens
		SET last_login = $2
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(citizenID), at)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Citizen, error) {
	var (
		citizen  models.Citizen
		cid      uuid.UUID
		familyID sql.NullString
	)
	err := row.Scan(&cid, &citizen.Phone, &familyID, &citizen.Name, &citizen.Verified, &citizen.LastLogin, &citizen.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan citizen: %w", err)
	}
	citizen.ID = id.CitizenID(cid)
	citizen.FamilyID = familyID.String
	return &citizen, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
