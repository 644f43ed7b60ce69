// Package models defines the application lifecycle entities: the application
// row, its status state machine, stepwise answers, status events, and
// compliance snapshots.
package models

import (
	"time"

	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
)

// Status is the application lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInProcess Status = "in_process"
	StatusNeedsInfo Status = "needs_info"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// ParseStatus validates a status value from the wire.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusDraft, StatusSubmitted, StatusInProcess, StatusNeedsInfo, StatusApproved, StatusRejected:
		return Status(raw), nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown application status")
}

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// transitions is the full state machine. draft leaves only via submit, which
// is a separate conditional-update path, so it has no admin transitions here.
var transitions = map[Status]map[Status]bool{
	StatusSubmitted: {
		StatusInProcess: true,
		StatusNeedsInfo: true,
		StatusApproved:  true,
		StatusRejected:  true,
	},
	StatusInProcess: {
		StatusNeedsInfo: true,
		StatusApproved:  true,
		StatusRejected:  true,
	},
	StatusNeedsInfo: {
		StatusInProcess: true,
		StatusApproved:  true,
		StatusRejected:  true,
	},
}

// CanTransition reports whether the state machine permits from → to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Meta is the typed metadata envelope attached to an application. Upstream
// flows write known keys only; free-form key-value state lives in the step
// answers, not here.
type Meta struct {
	SchemeCode   string `json:"scheme_code,omitempty"`
	District     string `json:"district,omitempty"`
	Channel      string `json:"channel,omitempty"`
	LanguageUsed string `json:"language_used,omitempty"`
}

// Application is the lifecycle aggregate.
type Application struct {
	ID           id.ApplicationID `json:"id"`
	SubmissionID string           `json:"submission_id,omitempty"`
	CitizenID    id.CitizenID     `json:"citizen_id"`
	FamilyID     string           `json:"family_id,omitempty"`
	ServiceRef   string           `json:"service_ref"`
	Status       Status           `json:"status"`
	CurrentStep  string           `json:"current_step,omitempty"`
	Meta         Meta             `json:"metadata"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// New creates a draft application. Applications are created by the
// service-catalog flow; the lifecycle manager owns them from here on.
func New(applicationID id.ApplicationID, citizenID id.CitizenID, familyID, serviceRef string, meta Meta, now time.Time) (*Application, error) {
	if serviceRef == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application requires a service reference")
	}
	return &Application{
		ID:         applicationID,
		CitizenID:  citizenID,
		FamilyID:   familyID,
		ServiceRef: serviceRef,
		Status:     StatusDraft,
		Meta:       meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// StepAnswer is one stepwise answer, keyed by (application, step id). Saving
// the same step id again replaces the answer.
type StepAnswer struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	StepID        string           `json:"step_id"`
	Answer        string           `json:"answer"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
