// Package httputil centralizes JSON response envelopes and domain error
// translation so every handler returns consistent shapes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "landlock/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded domain error to an HTTP error envelope. Internal
// errors omit the description so infrastructure details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if msg := dErrors.MessageOf(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, StatusOf(code), body)
}

// Decode parses the JSON request body into T. On failure it writes a
// CodeInvalidInput response and returns false; the handler should return.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request body"))
		return req, false
	}
	return req, true
}

// StatusOf maps error codes to HTTP statuses.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeArithmetic:
		return http.StatusUnprocessableEntity
	case dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
