package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// NewSubmissionID mints a citizen-facing submission identifier with the
// shape EM<year><2-digit-month><5-digit-random>, e.g. EM20250640417.
// At the portal's cardinality the collision probability within a month is
// accepted; the database unique constraint is the backstop.
func NewSubmissionID(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		return "", fmt.Errorf("submission id entropy: %w", err)
	}
	return fmt.Sprintf("EM%04d%02d%05d", now.Year(), int(now.Month()), n.Int64()), nil
}
