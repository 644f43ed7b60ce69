package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"sevasetu/internal/session/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// Postgres persists sessions in the sessions table. Mutations carry an
// `active = TRUE` guard so nothing transitions a deactivated session; the
// zero-rows result is translated to a sentinel for the service layer.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO sessions (id, citizen_id, family_id, device_id, device_name, ip_address, language, active, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(session.ID),
		nullUUID(uuid.UUID(session.CitizenID)),
		nullString(session.FamilyID),
		session.DeviceID,
		nullString(session.DeviceName),
		nullString(session.IPAddress),
		nullString(session.Language.String()),
		session.Active,
		session.CreatedAt,
		session.LastSeenAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	const query = `
		SELECT id, citizen_id, family_id, device_id, device_name, ip_address, language, active, created_at, last_seen_at
		FROM sessions
		WHERE id = $1
	`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *Postgres) SetLanguage(ctx context.Context, sessionID id.SessionID, lang id.Language) error {
	const query = `
		UPDATE sessions
		SET language = $2
		WHERE id = $1 AND active = TRUE
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(sessionID), lang.String())
	if err != nil {
		return fmt.Errorf("set session language: %w", err)
	}
	return guardAffected(res)
}

func (s *Postgres) Link(ctx context.Context, sessionID id.SessionID, citizenID id.CitizenID, familyID string) (id.CitizenID, error) {
	// RETURNING the pre-update binding lets the service audit replacements
	// without a separate read.
	const query = `
		UPDATE sessions s
		SET citizen_id = $2, family_id = $3
		FROM sessions prior
		WHERE s.id = prior.id AND s.id = $1 AND s.active = TRUE
		RETURNING prior.citizen_id
	`
	var previous sql.NullString
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID), uuid.UUID(citizenID), nullString(familyID)).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.CitizenID{}, sentinel.ErrNotFound
		}
		return id.CitizenID{}, fmt.Errorf("link session: %w", err)
	}
	if !previous.Valid {
		return id.CitizenID{}, nil
	}
	prev, err := uuid.Parse(previous.String)
	if err != nil {
		return id.CitizenID{}, fmt.Errorf("parse previous citizen id: %w", err)
	}
	return id.CitizenID(prev), nil
}

func (s *Postgres) Deactivate(ctx context.Context, sessionID id.SessionID) error {
	const query = `
		UPDATE sessions
		SET active = FALSE
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(sessionID))
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return guardAffected(res)
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var (
		session    models.Session
		sid        uuid.UUID
		citizenID  sql.NullString
		familyID   sql.NullString
		deviceName sql.NullString
		ipAddress  sql.NullString
		language   sql.NullString
	)
	err := row.Scan(&sid, &citizenID, &familyID, &session.DeviceID, &deviceName, &ipAddress, &language, &session.Active, &session.CreatedAt, &session.LastSeenAt)
	if err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sid)
	if citizenID.Valid {
		cid, err := uuid.Parse(citizenID.String)
		if err != nil {
			return nil, fmt.Errorf("parse citizen id: %w", err)
		}
		session.CitizenID = id.CitizenID(cid)
	}
	session.FamilyID = familyID.String
	session.DeviceName = deviceName.String
	session.IPAddress = ipAddress.String
	session.Language = id.Language(language.String)
	return &session, nil
}

func guardAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullUUID(u uuid.UUID) sql.NullString {
	if u == uuid.Nil {
		return sql.NullString{}
	}
	return sql.NullString{String: u.String(), Valid: true}
}
