package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"rollcall/internal/platform/sentinel"
)

// errorBody is the wire shape for all error responses.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON serializes v with the given status. Encoding failures are
// swallowed; by the time encoding fails the header is already written.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError maps sentinel errors onto HTTP statuses. Unrecognized errors
// become 500 with the detail omitted so internals never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Description: err.Error()})
	case errors.Is(err, sentinel.ErrDuplicate):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "conflict", Description: err.Error()})
	case errors.Is(err, sentinel.ErrInvalidState):
		WriteJSON(w, http.StatusConflict, errorBody{Error: "invalid_state", Description: err.Error()})
	case errors.Is(err, sentinel.ErrUnavailable):
		WriteJSON(w, http.StatusServiceUnavailable, errorBody{Error: "unavailable", Description: err.Error()})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error"})
	}
}

// WriteBadRequest reports a validation failure with its description.
func WriteBadRequest(w http.ResponseWriter, description string) {
	WriteJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Description: description})
}

// DecodeJSON decodes the request body into T, reporting a 400 on failure.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		WriteBadRequest(w, "malformed request body")
		return v, false
	}
	return v, true
}
