package comparator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	msgNotFound      = "API endpoint not found (404). Please ensure the backend server is running and configured correctly."
	msgInternal      = "Internal server error (500). Please check the backend server logs."
	msgTooLarge      = "File too large (413). Please upload smaller files."
	msgUnreachable   = "Unable to connect to the server. Please check if the backend API is running and accessible."
	msgCORS          = "CORS error: The backend server is not configured to accept requests from this domain."
	msgMissingRoute  = "API endpoint not found. Please ensure the backend server is running at the configured URL."
	msgUnexpectedErr = "An unexpected error occurred"
)

// StatusError is a non-2xx answer from the comparison API.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// TransportError is a failure to get any answer. Message is meant for the user.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newStatusError(code int, status string, body []byte) *StatusError {
	return &StatusError{
		Code:    code,
		Status:  status,
		Message: statusMessage(code, status, body),
	}
}

// statusMessage picks the wording for a failed response: fixed text for
// 404/413/500, else the body's message or error, else the status text.
func statusMessage(code int, status string, body []byte) string {
	fallback := fmt.Sprintf("Server error: %d", code)

	switch code {
	case http.StatusNotFound:
		return msgNotFound
	case http.StatusRequestEntityTooLarge:
		return msgTooLarge
	case http.StatusInternalServerError:
		if detail := bodyMessage(body); detail != "" {
			return fmt.Sprintf("%s Server said: %s", msgInternal, detail)
		}
		return msgInternal
	}

	if gjson.ValidBytes(body) {
		if detail := bodyMessage(body); detail != "" {
			return detail
		}
		return fallback
	}

	if text := statusText(code, status); text != "" {
		return text
	}
	return fallback
}

func bodyMessage(body []byte) string {
	for _, key := range []string{"message", "error"} {
		value := gjson.GetBytes(body, key)
		if value.Type == gjson.String && strings.TrimSpace(value.Str) != "" {
			return strings.TrimSpace(value.Str)
		}
	}
	return ""
}

// statusText strips the numeric code from a status line such as "502 Bad Gateway".
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(status), strconv.Itoa(code)))
	if text == "" {
		text = http.StatusText(code)
	}
	return text
}

// rewriteTransportError turns low-level failures into actionable messages.
// Cancellation is passed through untouched.
func rewriteTransportError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	raw := err.Error()
	message := raw

	switch {
	case containsAny(raw, "Failed to fetch", "NetworkError", "connection refused", "no such host",
		"network is unreachable", "Client.Timeout", "i/o timeout", "deadline exceeded", "unsupported protocol scheme"):
		message = msgUnreachable
	case strings.Contains(raw, "CORS"):
		message = msgCORS
	case containsAny(raw, "404", "Not Found"):
		message = msgMissingRoute
	case strings.TrimSpace(raw) == "":
		message = msgUnexpectedErr
	}

	return &TransportError{Message: message, Err: err}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
