package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is the full portal DDL. Statements are idempotent so EnsureSchema
// can run on every boot.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           UUID PRIMARY KEY,
	citizen_id   UUID,
	family_id    TEXT,
	device_id    TEXT NOT NULL,
	device_name  TEXT,
	ip_address   TEXT,
	language     TEXT,
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_citizen_idx ON sessions (citizen_id) WHERE citizen_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS citizens (
	id         UUID PRIMARY KEY,
	phone      TEXT NOT NULL UNIQUE,
	family_id  TEXT,
	name       TEXT NOT NULL DEFAULT '',
	verified   BOOLEAN NOT NULL DEFAULT FALSE,
	last_login TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS consent_logs (
	id             UUID PRIMARY KEY,
	session_id     UUID,
	application_id UUID,
	citizen_id     UUID,
	consent_type   TEXT NOT NULL,
	purpose_hi     TEXT NOT NULL DEFAULT '',
	purpose_en     TEXT NOT NULL DEFAULT '',
	ip_address     TEXT,
	user_agent     TEXT,
	granted_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS consent_logs_session_idx ON consent_logs (session_id) WHERE session_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS consent_logs_application_idx ON consent_logs (application_id) WHERE application_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS applications (
	id            UUID PRIMARY KEY,
	submission_id TEXT UNIQUE,
	citizen_id    UUID NOT NULL,
	family_id     TEXT,
	service_ref   TEXT NOT NULL,
	status        TEXT NOT NULL,
	current_step  TEXT,
	metadata      JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS applications_citizen_idx ON applications (citizen_id);
CREATE INDEX IF NOT EXISTS applications_status_idx ON applications (status);

CREATE TABLE IF NOT EXISTS application_steps (
	application_id UUID NOT NULL REFERENCES applications (id),
	step_id        TEXT NOT NULL,
	answer         TEXT NOT NULL DEFAULT '',
	updated_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (application_id, step_id)
);

CREATE TABLE IF NOT EXISTS status_events (
	id              TEXT PRIMARY KEY,
	application_id  UUID NOT NULL REFERENCES applications (id),
	previous_status TEXT,
	new_status      TEXT NOT NULL,
	changed_by      UUID,
	remarks         TEXT,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS status_events_application_idx ON status_events (application_id);

CREATE TABLE IF NOT EXISTS application_snapshots (
	id             UUID PRIMARY KEY,
	application_id UUID NOT NULL REFERENCES applications (id),
	body           JSONB NOT NULL,
	taken_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_sessions (
	token      TEXT PRIMARY KEY,
	admin_id   UUID NOT NULL REFERENCES admin_users (id),
	created_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_outbox (
	id           UUID PRIMARY KEY,
	action       TEXT NOT NULL,
	subject      TEXT NOT NULL DEFAULT '',
	payload      JSONB NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS audit_outbox_unpublished_idx ON audit_outbox (occurred_at) WHERE published_at IS NULL;
`

// EnsureSchema applies the DDL. Safe to call on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
