// Package registry defines the family-registry lookup port. The registry is
// an external government system consumed only at this interface boundary; the
// portal joins its household record into the citizen profile view.
package registry

import "context"

// FamilyRecord is the authoritative household record keyed by family id.
type FamilyRecord struct {
	FamilyID string   `json:"family_id"`
	HeadName string   `json:"head_name"`
	Address  string   `json:"address"`
	District string   `json:"district"`
	Members  []Member `json:"members"`
}

// Member is one person in the household record.
type Member struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Age      int    `json:"age"`
}

// Lookup fetches household records from the external registry.
type Lookup interface {
	FindFamily(ctx context.Context, familyID string) (*FamilyRecord, error)
}
