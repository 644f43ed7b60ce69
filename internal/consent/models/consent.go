// Package models defines the consent ledger records. Consent entries are
// legal evidence and therefore append-only: there is no update or delete
// operation anywhere in the module.
package models

import (
	"time"

	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
)

// Purpose is the bilingual statement the citizen agreed to, stored verbatim
// so later policy-text revisions cannot change what was consented to.
type Purpose struct {
	Hindi   string `json:"hi"`
	English string `json:"en"`
}

// Type classifies what the grant covers.
type Type string

const (
	// TypeDataUse is the portal-wide data-processing grant captured during
	// onboarding.
	TypeDataUse Type = "data_use"
	// TypeSchemeApplication is a per-application grant captured at submit
	// time for a specific scheme.
	TypeSchemeApplication Type = "scheme_application"
)

func (t Type) Valid() bool {
	return t == TypeDataUse || t == TypeSchemeApplication
}

// ConsentLog is one recorded grant. Exactly the scope referenced at grant
// time is set: SessionID for portal-wide data-use consent, ApplicationID for
// a scheme-specific grant. At least one must be present.
type ConsentLog struct {
	ID            id.ConsentID      `json:"id"`
	SessionID     *id.SessionID     `json:"session_id,omitempty"`
	ApplicationID *id.ApplicationID `json:"application_id,omitempty"`
	CitizenID     *id.CitizenID     `json:"citizen_id,omitempty"`
	Type          Type              `json:"consent_type"`
	Purpose       Purpose           `json:"purpose"`
	IPAddress     string            `json:"ip_address"`
	UserAgent     string            `json:"user_agent"`
	GrantedAt     time.Time         `json:"granted_at"`
}

// New builds a grant record, enforcing that it is anchored to a session or
// an application. An unanchored grant would be unattributable evidence.
func New(consentID id.ConsentID, sessionID *id.SessionID, applicationID *id.ApplicationID, consentType Type, purpose Purpose, ip, userAgent string, now time.Time) (*ConsentLog, error) {
	if sessionID == nil && applicationID == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent must reference a session or an application")
	}
	if !consentType.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown consent type")
	}
	if purpose.English == "" && purpose.Hindi == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "consent purpose is required")
	}
	return &ConsentLog{
		ID:            consentID,
		SessionID:     sessionID,
		ApplicationID: applicationID,
		Type:          consentType,
		Purpose:       purpose,
		IPAddress:     ip,
		UserAgent:     userAgent,
		GrantedAt:     now,
	}, nil
}
