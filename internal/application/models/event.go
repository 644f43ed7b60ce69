package models

import (
	"time"

	"github.com/oklog/ulid/v2"

	id "sevasetu/pkg/domain"
)

// StatusEvent is one append-only audit trail entry for an application. ULID
// ids give the trail a total order that agrees with creation time even when
// two events share a timestamp.
type StatusEvent struct {
	ID             ulid.ULID        `json:"id"`
	ApplicationID  id.ApplicationID `json:"application_id"`
	PreviousStatus *Status          `json:"previous_status"`
	NewStatus      Status           `json:"new_status"`
	// ChangedBy is nil for system-triggered transitions (submit).
	ChangedBy *id.AdminID `json:"changed_by,omitempty"`
	Remarks   string      `json:"remarks,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewStatusEvent mints an event with a time-ordered id. ulid.Make uses the
// locked monotonic source, so ids minted in the same millisecond still sort
// in mint order.
func NewStatusEvent(applicationID id.ApplicationID, previous *Status, next Status, changedBy *id.AdminID, remarks string, now time.Time) *StatusEvent {
	return &StatusEvent{
		ID:             ulid.Make(),
		ApplicationID:  applicationID,
		PreviousStatus: previous,
		NewStatus:      next,
		ChangedBy:      changedBy,
		Remarks:        remarks,
		CreatedAt:      now,
	}
}
