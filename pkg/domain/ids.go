// Package domain holds shared domain primitives: typed entity IDs and the
// portal language enum. IDs are distinct named types over uuid.UUID so the
// compiler rejects cross-entity mixups (a SessionID can never be passed where
// a CitizenID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "sevasetu/pkg/domain-errors"
)

type (
	// SessionID identifies one anonymous or citizen-linked browser session.
	SessionID uuid.UUID
	// CitizenID identifies a verified end-user identity.
	CitizenID uuid.UUID
	// ApplicationID identifies one service application.
	ApplicationID uuid.UUID
	// ConsentID identifies one immutable consent event.
	ConsentID uuid.UUID
	// AdminID identifies a staff account.
	AdminID uuid.UUID
	// SnapshotID identifies one immutable application snapshot.
	SnapshotID uuid.UUID
)

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseSessionID validates and returns a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parse(s)
	return SessionID(u), err
}

// ParseCitizenID validates and returns a CitizenID.
func ParseCitizenID(s string) (CitizenID, error) {
	u, err := parse(s)
	return CitizenID(u), err
}

// ParseApplicationID validates and returns an ApplicationID.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parse(s)
	return ApplicationID(u), err
}

// ParseConsentID validates and returns a ConsentID.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parse(s)
	return ConsentID(u), err
}

// ParseAdminID validates and returns an AdminID.
func ParseAdminID(s string) (AdminID, error) {
	u, err := parse(s)
	return AdminID(u), err
}

func (id SessionID) String() string     { return uuid.UUID(id).String() }
func (id CitizenID) String() string     { return uuid.UUID(id).String() }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ConsentID) String() string     { return uuid.UUID(id).String() }
func (id AdminID) String() string       { return uuid.UUID(id).String() }
func (id SnapshotID) String() string    { return uuid.UUID(id).String() }

func (id SessionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CitizenID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AdminID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id SnapshotID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// NewSessionID returns a fresh random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewCitizenID returns a fresh random CitizenID.
func NewCitizenID() CitizenID { return CitizenID(uuid.New()) }

// NewApplicationID returns a fresh random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewConsentID returns a fresh random ConsentID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewAdminID returns a fresh random AdminID.
func NewAdminID() AdminID { return AdminID(uuid.New()) }

// NewSnapshotID returns a fresh random SnapshotID.
func NewSnapshotID() SnapshotID { return SnapshotID(uuid.New()) }
