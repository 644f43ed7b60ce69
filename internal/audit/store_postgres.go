package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "sevasetu/pkg/domain"
)

// PostgresStore implements Store using the transactional outbox pattern: each
// event is inserted into audit_outbox and the Kafka relay publishes unsent
// rows. Kafka is the downstream source of truth for compliance consumers; the
// outbox keeps local queries possible and survives broker outages.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// outboxPayload is the JSON structure published to Kafka. Field names match
// Event so consumers can deserialize symmetrically.
type outboxPayload struct {
	ID        string `json:"ID"`
	Timestamp string `json:"Timestamp"`
	Action    string `json:"Action"`
	SessionID string `json:"SessionID,omitempty"`
	CitizenID string `json:"CitizenID,omitempty"`
	ActorID   string `json:"ActorID,omitempty"`
	Subject   string `json:"Subject,omitempty"`
	Detail    string `json:"Detail,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:        eventID.String(),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    string(event.Action),
		Subject:   event.Subject,
		Detail:    event.Detail,
		RequestID: event.RequestID,
	}
	if !event.SessionID.IsNil() {
		payload.SessionID = event.SessionID.String()
	}
	if !event.CitizenID.IsNil() {
		payload.CitizenID = event.CitizenID.String()
	}
	if !event.ActorID.IsNil() {
		payload.ActorID = event.ActorID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const query = `
		INSERT INTO audit_outbox (id, action, subject, payload, occurred_at, published_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
	`
	if _, err := s.db.ExecContext(ctx, query,
		eventID, string(event.Action), event.Subject, string(payloadBytes), event.Timestamp,
	); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	const query = `
		SELECT payload
		FROM audit_outbox
		WHERE subject = $1
		ORDER BY occurred_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event, err := decodePayload(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

// UnpublishedBatch returns up to limit outbox rows not yet relayed to Kafka,
// oldest first.
func (s *PostgresStore) UnpublishedBatch(ctx context.Context, limit int) ([]OutboxRow, error) {
	const query = `
		SELECT id, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select unpublished audit events: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkPublished stamps outbox rows after a successful Kafka produce.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `
		UPDATE audit_outbox
		SET published_at = $1
		WHERE id = ANY($2::uuid[])
	`
	if _, err := s.db.ExecContext(ctx, query, at, pq.Array(idsToStrings(ids))); err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

// OutboxRow is one unrelayed audit event.
type OutboxRow struct {
	ID      uuid.UUID
	Payload []byte
}

func decodePayload(raw []byte) (Event, error) {
	var p outboxPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	event := Event{
		Action:    Action(p.Action),
		Subject:   p.Subject,
		Detail:    p.Detail,
		RequestID: p.RequestID,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	if p.SessionID != "" {
		if sid, err := uuid.Parse(p.SessionID); err == nil {
			event.SessionID = id.SessionID(sid)
		}
	}
	if p.CitizenID != "" {
		if cid, err := uuid.Parse(p.CitizenID); err == nil {
			event.CitizenID = id.CitizenID(cid)
		}
	}
	if p.ActorID != "" {
		if aid, err := uuid.Parse(p.ActorID); err == nil {
			event.ActorID = id.AdminID(aid)
		}
	}
	return event, nil
}

func idsToStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}
