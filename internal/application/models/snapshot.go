package models

import (
	"time"

	id "sevasetu/pkg/domain"
)

// Snapshot is an immutable, timestamped deep copy of an application and its
// step answers, taken for compliance freezing. Snapshots are additive only;
// nothing ever updates or deletes one.
type Snapshot struct {
	ID            id.SnapshotID    `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Application   Application      `json:"application"`
	Steps         []StepAnswer     `json:"steps"`
	TakenAt       time.Time        `json:"taken_at"`
}

// NewSnapshot deep-copies the application state as of now.
func NewSnapshot(snapshotID id.SnapshotID, app *Application, steps []StepAnswer, now time.Time) *Snapshot {
	copied := make([]StepAnswer, len(steps))
	copy(copied, steps)
	return &Snapshot{
		ID:            snapshotID,
		ApplicationID: app.ID,
		Application:   *app,
		Steps:         copied,
		TakenAt:       now,
	}
}
