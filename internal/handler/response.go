package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"error": "validation_error",
//	 "message": "Title must be at least 5 characters long.",
//	 "fields": {"title": "Title must be at least 5 characters long."}}
//
// "fields" is present only for validation errors and carries one entry per
// offending field — a request with three invalid fields reports all three.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/bugtracker/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string            `json:"error"`            // Machine-readable error type (e.g., "not_found")
	Message string            `json:"message"`          // Human-readable description
	Fields  map[string]string `json:"fields,omitempty"` // Per-field messages for validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body. Once Encode
// writes the first byte, the headers are sent and further changes are
// silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent — we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// This is the single place where domain errors become HTTP:
//
//	ErrValidation   → 400 with a per-field map
//	ErrUnauthorized → 401
//	ErrNotFound     → 404 (covers not-owned records too — ownership failures
//	                  are indistinguishable from absence, never 403)
//	anything else   → 500 with a generic message
//
// There is no 409: duplicate username/email at registration is ordinary
// invalid input and arrives here as a validation error on the field.
//
// errors.As/Is walk the wrapped error chain, so services are free to wrap
// domain errors with fmt.Errorf("...: %w", err) context.
func writeError(w http.ResponseWriter, err error) {
	// Multi-field validation failures carry one entry per invalid field.
	var fieldErrs *apperror.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid input.",
			Fields:  fieldErrs.Fields(),
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		}

		resp := ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		}
		// A single-field validation error still reports its field.
		if errorType == "validation_error" && appErr.Field != "" {
			resp.Fields = map[string]string{appErr.Field: appErr.Message}
		}

		writeJSON(w, status, resp)
		return
	}

	// Unknown error — return a generic 500.
	// NEVER expose internal error details to the client: the raw message
	// might contain SQL fragments, file paths, or other sensitive info.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON decodes a request body into dst, translating malformed JSON
// into a validation error instead of a bare 400 string.
//
// A type mismatch on a known field (e.g. a number in the tags array) is
// reported as a field error on that field — wrong types are invalid input,
// not a transport fault.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			// Nested paths like "tags.0" collapse to the top-level field.
			field, _, _ := strings.Cut(typeErr.Field, ".")
			if field == "tags" {
				return apperror.ValidationFailed("tags", "All tags must be strings.")
			}
			return apperror.ValidationFailed(field, "Invalid type: expected "+typeErr.Type.String()+".")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body.")
	}
	return nil
}
