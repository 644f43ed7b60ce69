// Package dErrors provides code-tagged errors shared by all services.
//
// Services attach a Code at the point where a failure becomes meaningful to a
// caller; the HTTP layer maps codes to status lines in one place
// (pkg/platform/httputil). Stores never return these directly; they return
// sentinel errors (pkg/platform/sentinel) which services translate.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport mapping and programmatic checks.
type Code string

const (
	// CodeValidation marks malformed or missing caller input.
	CodeValidation Code = "validation_error"
	// CodeBadRequest marks a structurally invalid request (bad JSON, missing
	// bearer, wrong content type).
	CodeBadRequest Code = "bad_request"
	// CodeInvalidInput marks a well-formed value that fails a domain parse
	// (bad UUID, unknown enum member).
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized marks a missing or unverifiable credential.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden marks an authenticated caller without permission.
	CodeForbidden Code = "forbidden"
	// CodeNotFound marks an unknown entity id.
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state-machine guard violation, e.g. a duplicate
	// submit racing against an already-submitted application.
	CodeConflict Code = "conflict"
	// CodeInvariantViolation marks a broken domain invariant detected by an
	// entity constructor or transition guard.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks a deadline hit while waiting on a collaborator.
	CodeTimeout Code = "timeout"
	// CodeInternal marks store or collaborator failures the caller cannot fix.
	CodeInternal Code = "internal_error"
)

// Error is the concrete code-tagged error. Message is safe to surface to
// clients for every code except CodeInternal.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a code-tagged error with no underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is / errors.As.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var tagged *Error
	for errors.As(err, &tagged) {
		if tagged.Code == code {
			return true
		}
		err = tagged.cause
		tagged = nil
	}
	return false
}

// Is is a readability alias for HasCode used at call sites that branch on a
// single code.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is untagged.
func CodeOf(err error) Code {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to its transport status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeBadRequest, CodeInvalidInput, CodeInvariantViolation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
