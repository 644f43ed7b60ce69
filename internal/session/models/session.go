// Package models holds the citizen session entity.
package models

import (
	"time"

	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
)

// Session is one client device/browser instance, independent of identity. Its
// ID is the sole bearer token handed to the client. A session starts anonymous
// and is progressively linked to a citizen during onboarding.
//
// Invariants:
//   - once Active is false no further state transitions may reference the
//     session (stores guard mutations with active = TRUE)
//   - CitizenID is nil until linked; re-linking replaces the binding
//     explicitly and is audited, never silently overwritten
type Session struct {
	ID         id.SessionID `json:"id"`
	CitizenID  id.CitizenID `json:"citizen_id,omitempty"`
	FamilyID   string       `json:"family_id,omitempty"`
	DeviceID   string       `json:"device_id"`
	DeviceName string       `json:"device_name,omitempty"`
	IPAddress  string       `json:"ip_address,omitempty"`
	Language   id.Language  `json:"language,omitempty"`
	Active     bool         `json:"active"`
	CreatedAt  time.Time    `json:"created_at"`
	LastSeenAt time.Time    `json:"last_seen_at"`
}

// New constructs an anonymous active session.
func New(sessionID id.SessionID, deviceID, deviceName, ip string, now time.Time) (*Session, error) {
	if sessionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "session id must not be nil")
	}
	if deviceID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "device id must not be empty")
	}
	return &Session{
		ID:         sessionID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IPAddress:  ip,
		Active:     true,
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// Linked reports whether the session is bound to a verified citizen.
func (s *Session) Linked() bool {
	return !s.CitizenID.IsNil()
}
