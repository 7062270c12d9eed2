package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the failure taxonomy surfaced to callers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionExpired     = errors.New("session expired")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrNetwork            = errors.New("network error")
	ErrServer             = errors.New("server error")
)

// APIError is a structured error for a non-2xx API response.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError carries per-field messages from a 400 response so forms
// can surface them next to the offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the message for a form field, or "" if the field is clean.
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

// parseError translates a non-2xx response body into the error taxonomy.
func parseError(status int, body []byte) error {
	msg := extractMessage(body)

	switch {
	case status == 400:
		if fields := extractFieldErrors(body); len(fields) > 0 {
			return &ValidationError{Fields: fields}
		}
		return &APIError{Status: status, Message: msg}
	case status == 401:
		return &APIError{Status: status, Message: msg, Err: ErrUnauthorized}
	case status == 403:
		return &APIError{Status: status, Message: msg, Err: ErrForbidden}
	case status == 404:
		return &APIError{Status: status, Message: msg, Err: ErrNotFound}
	case status >= 500:
		return &APIError{Status: status, Message: msg, Err: ErrServer}
	default:
		return &APIError{Status: status, Message: msg}
	}
}

// extractMessage pulls a human-readable message out of the common error body
// shapes the API uses: {"error": "..."}, {"detail": "..."}, {"message": "..."}.
func extractMessage(body []byte) string {
	var payload map[string]json.RawMessage
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	for _, key := range []string{"error", "detail", "message"} {
		if raw, ok := payload[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				return s
			}
		}
	}
	return ""
}

// extractFieldErrors parses the field-error shape {"field": ["msg", ...]}.
// Only string-list values count; anything else is not a field error.
func extractFieldErrors(body []byte) map[string]string {
	var payload map[string]json.RawMessage
	if json.Unmarshal(body, &payload) != nil {
		return nil
	}

	fields := make(map[string]string)
	for key, raw := range payload {
		var msgs []string
		if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
			fields[key] = msgs[0]
			continue
		}
		var msg string
		if key != "error" && key != "detail" && json.Unmarshal(raw, &msg) == nil && msg != "" {
			fields[key] = msg
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}
