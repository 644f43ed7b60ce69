package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"sevasetu/internal/application/models"
	id "sevasetu/pkg/domain"
	"sevasetu/pkg/platform/sentinel"
)

// Postgres persists applications and their trail. The submit and status
// writes are conditional updates guarded by the expected current status, so
// the compare-and-swap happens inside the database and a losing concurrent
// writer observes zero affected rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, app *models.Application) error {
	meta, err := json.Marshal(app.Meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	const query = `
		INSERT INTO applications (id, submission_id, citizen_id, family_id, service_ref, status, current_step, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(app.ID),
		nullString(app.SubmissionID),
		uuid.UUID(app.CitizenID),
		nullString(app.FamilyID),
		app.ServiceRef,
		string(app.Status),
		nullString(app.CurrentStep),
		string(meta),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	return nil
}

const selectApplication = `
	SELECT id, submission_id, citizen_id, family_id, service_ref, status, current_step, metadata, created_at, updated_at
	FROM applications
`

func (s *Postgres) FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, selectApplication+` WHERE id = $1`, uuid.UUID(applicationID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	return app, nil
}

func (s *Postgres) List(ctx context.Context, filter ListFilter) ([]models.Application, error) {
	query := selectApplication + ` WHERE 1=1`
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.CitizenID.IsNil() {
		args = append(args, uuid.UUID(filter.CitizenID))
		query += fmt.Sprintf(" AND citizen_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return out, nil
}

// Submit assigns the submission id and moves draft → submitted in one
// statement. ErrInvalidState distinguishes "exists but not draft" from
// "does not exist".
func (s *Postgres) Submit(ctx context.Context, applicationID id.ApplicationID, submissionID string, now time.Time) error {
	const query = `
		UPDATE applications
		SET status = 'submitted', submission_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'draft'
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(applicationID), submissionID, now)
	if err != nil {
		return fmt.Errorf("submit application: %w", err)
	}
	return s.guardTransition(ctx, res, applicationID)
}

func (s *Postgres) SetStatus(ctx context.Context, applicationID id.ApplicationID, from, to models.Status, now time.Time) error {
	const query = `
		UPDATE applications
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(applicationID), string(from), string(to), now)
	if err != nil {
		return fmt.Errorf("set application status: %w", err)
	}
	return s.guardTransition(ctx, res, applicationID)
}

func (s *Postgres) guardTransition(ctx context.Context, res sql.Result, applicationID id.ApplicationID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, uuid.UUID(applicationID)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check application exists: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

// UpsertStep replaces the answer for (application, step) and advances
// current_step, keeping the write idempotent under retries.
func (s *Postgres) UpsertStep(ctx context.Context, step *models.StepAnswer) error {
	const upsert = `
		INSERT INTO application_steps (application_id, step_id, answer, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (application_id, step_id)
		DO UPDATE SET answer = EXCLUDED.answer, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, upsert, uuid.UUID(step.ApplicationID), step.StepID, step.Answer, step.UpdatedAt); err != nil {
		return fmt.Errorf("upsert step: %w", err)
	}

	const advance = `
		UPDATE applications
		SET current_step = $2, updated_at = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, advance, uuid.UUID(step.ApplicationID), step.StepID, step.UpdatedAt)
	if err != nil {
		return fmt.Errorf("advance current step: %w", err)
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

func (s *Postgres) ListSteps(ctx context.Context, applicationID id.ApplicationID) ([]models.StepAnswer, error) {
	const query = `
		SELECT application_id, step_id, answer, updated_at
		FROM application_steps
		WHERE application_id = $1
		ORDER BY updated_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var out []models.StepAnswer
	for rows.Next() {
		var (
			step models.StepAnswer
			aid  uuid.UUID
		)
		if err := rows.Scan(&aid, &step.StepID, &step.Answer, &step.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.ApplicationID = id.ApplicationID(aid)
		out = append(out, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	return out, nil
}

func (s *Postgres) AppendEvent(ctx context.Context, event *models.StatusEvent) error {
	const query = `
		INSERT INTO status_events (id, application_id, previous_status, new_status, changed_by, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var previous sql.NullString
	if event.PreviousStatus != nil {
		previous = sql.NullString{String: string(*event.PreviousStatus), Valid: true}
	}
	var changedBy sql.NullString
	if event.ChangedBy != nil {
		changedBy = sql.NullString{String: event.ChangedBy.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query,
		event.ID.String(),
		uuid.UUID(event.ApplicationID),
		previous,
		string(event.NewStatus),
		changedBy,
		nullString(event.Remarks),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append status event: %w", err)
	}
	return nil
}

func (s *Postgres) ListEvents(ctx context.Context, applicationID id.ApplicationID) ([]models.StatusEvent, error) {
	const query = `
		SELECT id, application_id, previous_status, new_status, changed_by, remarks, created_at
		FROM status_events
		WHERE application_id = $1
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	defer rows.Close()

	var out []models.StatusEvent
	for rows.Next() {
		var (
			event     models.StatusEvent
			rawID     string
			aid       uuid.UUID
			previous  sql.NullString
			changedBy sql.NullString
			remarks   sql.NullString
		)
		if err := rows.Scan(&rawID, &aid, &previous, &event.NewStatus, &changedBy, &remarks, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status event: %w", err)
		}
		eventID, err := ulid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse event id: %w", err)
		}
		event.ID = eventID
		event.ApplicationID = id.ApplicationID(aid)
		if previous.Valid {
			prev := models.Status(previous.String)
			event.PreviousStatus = &prev
		}
		if changedBy.Valid {
			admin, err := uuid.Parse(changedBy.String)
			if err != nil {
				return nil, fmt.Errorf("parse changed_by: %w", err)
			}
			adminID := id.AdminID(admin)
			event.ChangedBy = &adminID
		}
		event.Remarks = remarks.String
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	return out, nil
}

func (s *Postgres) CreateSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	const query = `
		INSERT INTO application_snapshots (id, application_id, body, taken_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, uuid.UUID(snapshot.ID), uuid.UUID(snapshot.ApplicationID), string(body), snapshot.TakenAt); err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

func (s *Postgres) FindSnapshot(ctx context.Context, snapshotID id.SnapshotID) (*models.Snapshot, error) {
	const query = `
		SELECT body
		FROM application_snapshots
		WHERE id = $1
	`
	var body []byte
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(snapshotID)).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	var snapshot models.Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app          models.Application
		aid          uuid.UUID
		submissionID sql.NullString
		cid          uuid.UUID
		familyID     sql.NullString
		currentStep  sql.NullString
		meta         []byte
	)
	err := row.Scan(&aid, &submissionID, &cid, &familyID, &app.ServiceRef, &app.Status, &currentStep, &meta, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return nil, err
	}
	app.ID = id.ApplicationID(aid)
	app.SubmissionID = submissionID.String
	app.CitizenID = id.CitizenID(cid)
	app.FamilyID = familyID.String
	app.CurrentStep = currentStep.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &app.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &app, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
