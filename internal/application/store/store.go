package store

import (
	id "sevasetu/pkg/domain"

	"sevasetu/internal/application/models"
)

// ListFilter narrows admin list queries.
type ListFilter struct {
	Status    models.Status
	CitizenID id.CitizenID
	Limit     int
}
