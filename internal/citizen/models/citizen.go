// Package models holds the verified citizen identity.
package models

import (
	"strings"
	"time"

	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
)

// Citizen is a verified end-user identity, distinct from a Session. Phone is
// the unique natural key; FamilyID is the external registry join key for
// authoritative household lookups.
type Citizen struct {
	ID        id.CitizenID `json:"id"`
	Phone     string       `json:"phone"`
	FamilyID  string       `json:"family_id,omitempty"`
	Name      string       `json:"name"`
	Verified  bool         `json:"verified"`
	LastLogin time.Time    `json:"last_login"`
	CreatedAt time.Time    `json:"created_at"`
}

// New constructs a verified citizen. Phone must already be normalized.
func New(citizenID id.CitizenID, phone, familyID, name string, now time.Time) (*Citizen, error) {
	if len(phone) != phoneDigits {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone must be 10 normalized digits")
	}
	if strings.TrimSpace(name) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name must not be empty")
	}
	return &Citizen{
		ID:        citizenID,
		Phone:     phone,
		FamilyID:  familyID,
		Name:      strings.TrimSpace(name),
		Verified:  true,
		LastLogin: now,
		CreatedAt: now,
	}, nil
}

const phoneDigits = 10

// NormalizePhone strips every non-digit and keeps the last 10 digits, the
// subscriber number without country code or punctuation. Returns an error when
// fewer than 10 digits remain.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	if len(s) < phoneDigits {
		return "", dErrors.New(dErrors.CodeValidation, "phone must contain at least 10 digits")
	}
	return s[len(s)-phoneDigits:], nil
}
