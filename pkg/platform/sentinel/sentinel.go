package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with the right
// code for the caller.
//
// These represent factual states about stored entities, not validation
// failures:
//   - ErrNotFound: row does not exist
//   - ErrConflict: a uniqueness or compare-and-swap guard rejected the write
//     (duplicate phone, application no longer in draft)
//   - ErrExpired: admin session past its expires_at
//   - ErrInvalidState: entity in the wrong state for the requested transition
//   - ErrUnavailable: backing store temporarily unreachable
//
// For bad input use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
