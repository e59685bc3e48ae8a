// ABOUTME: Human-readable messages for Google Calendar API failures
// ABOUTME: Maps HTTP status codes to guidance shown to the user
package gcal

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// APIError is a non-2xx response from the Calendar API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return FormatAPIError(e.Status, e.Message)
}

// FormatAPIError renders the message shown for a failed Calendar API call.
func FormatAPIError(status int, message string) string {
	switch status {
	case 401:
		return "Not authorized. Sign out and sign in again."
	case 403:
		msg := `Access denied (403). Enable "Google Calendar API" in Google Cloud Console: ` +
			`APIs & Services → Library → search "Google Calendar API" → Enable. `
		if message != "" {
			msg += "Details: " + message
		}
		return msg
	}
	if message != "" {
		return fmt.Sprintf("Calendar API error %d: %s", status, message)
	}
	return fmt.Sprintf("Calendar API error: %d", status)
}

// wrapError converts a googleapi error to *APIError and leaves anything else wrapped.
func wrapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{Status: gerr.Code, Message: gerr.Message}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
