package speech

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// maxErrorBody is the number of response body characters kept in APIError.
const maxErrorBody = 200

var (
	// ErrMissingCredential is returned when no API key is configured.
	ErrMissingCredential = errors.New("missing API credential")
	// ErrInvalidCredential is returned for keys with characters outside
	// printable ASCII. No request is made.
	ErrInvalidCredential = errors.New("API credential contains invalid characters")
	// ErrVoiceNotFound is returned when a voice lookup has no match.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrEmptyText is returned when asked to synthesize nothing.
	ErrEmptyText = errors.New("no text to synthesize")
)

// APIError is a non-success response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{StatusCode: status, Body: truncate(string(body), maxErrorBody)}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %d: %s", e.StatusCode, e.Body)
}

// IsRetryable reports whether a later attempt with the same input could
// succeed. Credential and request errors are not retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, ErrInvalidCredential) || errors.Is(err, ErrMissingCredential) {
		return false
	}
	return err != nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
