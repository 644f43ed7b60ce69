// Package audit provides the append-only audit pipeline. Domain services emit
// events through the Publisher; a worker drains them into the outbox store and
// an optional relay publishes outbox rows to Kafka. Emission is best-effort:
// the primary state transition is authoritative and is never blocked or rolled
// back by an audit failure.
package audit

import (
	"time"

	id "sevasetu/pkg/domain"
)

// Action names what operation occurred.
type Action string

const (
	ActionSessionCreated       Action = "session_created"
	ActionLanguageSet          Action = "language_set"
	ActionCitizenRegistered    Action = "citizen_registered"
	ActionCitizenLogin         Action = "citizen_login"
	ActionSessionLinked        Action = "session_linked"
	ActionSessionRelinked      Action = "session_relinked"
	ActionConsentRecorded      Action = "consent_recorded"
	ActionApplicationSubmitted Action = "application_submitted"
	ActionStatusChanged        Action = "status_changed"
	ActionSnapshotTaken        Action = "snapshot_taken"
	ActionAdminLogin           Action = "admin_login"
	ActionAdminLoginFailed     Action = "admin_login_failed"
	ActionAdminLogout          Action = "admin_logout"
	ActionForbiddenWrite       Action = "forbidden_write_attempt"
	ActionOnboardingNoSession  Action = "onboarding_no_session"
)

// Event is emitted from domain logic to capture one auditable action. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Action    Action
	// SessionID/CitizenID identify the citizen-side subject when applicable.
	SessionID id.SessionID
	CitizenID id.CitizenID
	// ActorID tracks the staff principal when the action was performed by an
	// admin rather than the citizen.
	ActorID id.AdminID
	// Subject carries the acted-on entity id (application, consent) as a
	// string so one field serves every entity kind.
	Subject   string
	Detail    string
	RequestID string
}
