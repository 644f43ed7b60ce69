package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sevasetu/internal/consent/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// Postgres persists the consent ledger. The consent_logs table has no UPDATE
// or DELETE path in this codebase; migrations additionally revoke those
// privileges from the application role.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, log *models.ConsentLog) error {
	const query = `
		INSERT INTO consent_logs (id, session_id, application_id, citizen_id, consent_type, purpose_hi, purpose_en, ip_address, user_agent, granted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(log.ID),
		nullSessionID(log.SessionID),
		nullApplicationID(log.ApplicationID),
		nullCitizenID(log.CitizenID),
		string(log.Type),
		log.Purpose.Hindi,
		log.Purpose.English,
		nullString(log.IPAddress),
		nullString(log.UserAgent),
		log.GrantedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append consent: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, consentID id.ConsentID) (*models.ConsentLog, error) {
	const query = selectConsent + ` WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(consentID))
	log, err := scanConsent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return log, nil
}

func (s *Postgres) ListBySession(ctx context.Context, sessionID id.SessionID) ([]models.ConsentLog, error) {
	const query = selectConsent + ` WHERE session_id = $1 ORDER BY granted_at`
	return s.list(ctx, query, uuid.UUID(sessionID))
}

func (s *Postgres) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]models.ConsentLog, error) {
	const query = selectConsent + ` WHERE application_id = $1 ORDER BY granted_at`
	return s.list(ctx, query, uuid.UUID(applicationID))
}

const selectConsent = `
	SELECT id, session_id, application_id, citizen_id, consent_type, purpose_hi, purpose_en, ip_address, user_agent, granted_at
	FROM consent_logs
`

func (s *Postgres) list(ctx context.Context, query string, arg any) ([]models.ConsentLog, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var out []models.ConsentLog
	for rows.Next() {
		log, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		out = append(out, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsent(row scanner) (*models.ConsentLog, error) {
	var (
		log           models.ConsentLog
		consentID     uuid.UUID
		sessionID     sql.NullString
		applicationID sql.NullString
		citizenID     sql.NullString
		ipAddress     sql.NullString
		userAgent     sql.NullString
		consentType   string
	)
	err := row.Scan(&consentID, &sessionID, &applicationID, &citizenID, &consentType,
		&log.Purpose.Hindi, &log.Purpose.English, &ipAddress, &userAgent, &log.GrantedAt)
	if err != nil {
		return nil, err
	}
	log.ID = id.ConsentID(consentID)
	log.Type = models.Type(consentType)
	if sessionID.Valid {
		sid, err := uuid.Parse(sessionID.String)
		if err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		v := id.SessionID(sid)
		log.SessionID = &v
	}
	if applicationID.Valid {
		aid, err := uuid.Parse(applicationID.String)
		if err != nil {
			return nil, fmt.Errorf("parse application id: %w", err)
		}
		v := id.ApplicationID(aid)
		log.ApplicationID = &v
	}
	if citizenID.Valid {
		cid, err := uuid.Parse(citizenID.String)
		if err != nil {
			return nil, fmt.Errorf("parse citizen id: %w", err)
		}
		v := id.CitizenID(cid)
		log.CitizenID = &v
	}
	log.IPAddress = ipAddress.String
	log.UserAgent = userAgent.String
	return &log, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullSessionID(v *id.SessionID) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func nullApplicationID(v *id.ApplicationID) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func nullCitizenID(v *id.CitizenID) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}
