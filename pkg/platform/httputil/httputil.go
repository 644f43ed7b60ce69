// Package httputil centralizes JSON response and error envelope writing so
// every handler produces the same shape.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "sevasetu/pkg/domain-errors"
)

// WriteJSON encodes v with the given status. Encoding failures are ignored;
// the status line has already been committed.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ReadJSON decodes the request body into v, rejecting unknown fields.
func ReadJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so store details never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.HTTPStatus(code)

	body := map[string]string{"error": string(code)}
	var tagged *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &tagged) && tagged.Message != "" {
		body["error_description"] = tagged.Message
	}

	WriteJSON(w, status, body)
}
