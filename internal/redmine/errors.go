package redmine

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for every failed call. StatusCode is zero when the
// request never produced a response (DNS, connection reset, timeout).
type APIError struct {
	Message    string
	StatusCode int
	// Body is the decoded JSON error document, nil when the body was not JSON.
	Body map[string]any
	Err  error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return "redmine: " + e.Message
	}
	return fmt.Sprintf("redmine API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError for HTTP 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// errorDocument is the shape Redmine uses for validation failures:
// {"errors": ["Subject cannot be blank", ...]}. Some plugins send a string.
type errorDocument struct {
	Errors json.RawMessage `json:"errors"`
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	text := strings.TrimSpace(string(raw))
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		if text == "" {
			apiErr.Message = fmt.Sprintf("HTTP %d", status)
		} else {
			apiErr.Message = fmt.Sprintf("HTTP %d: %s", status, truncate(text, 500))
		}
		return apiErr
	}
	apiErr.Body = body

	var doc errorDocument
	_ = json.Unmarshal(raw, &doc)
	apiErr.Message = errorMessage(doc.Errors)
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("HTTP %d", status)
	}
	return apiErr
}

func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			switch v := item.(type) {
			case string:
				parts = append(parts, v)
			default:
				b, _ := json.Marshal(v)
				parts = append(parts, string(b))
			}
		}
		return strings.Join(parts, ", ")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
