package server

import (
	"errors"
	"fmt"

	"github.com/aibridge-dev/aibridge/internal/session"
)

// ValidationError reports a malformed inbound argument. It is raised before
// any session work begins and never reaches a controller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// requiredString extracts a required non-empty string argument.
func requiredString(args map[string]any, field string) (string, *ValidationError) {
	v, ok := args[field]
	if !ok {
		return "", &ValidationError{Field: field, Reason: "required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Field: field, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	if isBlank(s) {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

// optionalString extracts an optional string argument, empty when absent or
// of the wrong type.
func optionalString(args map[string]any, field string) string {
	s, _ := args[field].(string)
	return s
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// renderError maps a session-layer error onto a readable client-facing
// message distinguishing the failure kind.
func renderError(err error) string {
	var ue *session.UpstreamError
	switch {
	case errors.Is(err, session.ErrNotActive):
		return "Session is not active. Send a prompt to start it, or check that it was not closed."
	case errors.Is(err, session.ErrTimeout):
		return "The request exceeded its time budget. Try again or raise promptTimeoutMs."
	case errors.Is(err, session.ErrCancelled):
		return "The request was cancelled."
	case errors.As(err, &ue):
		if ue.Status != "" {
			return fmt.Sprintf("The model backend reported an error (status %s): %s", ue.Status, ue.Message)
		}
		return "The model backend reported an error: " + ue.Message
	default:
		return "Request failed: " + err.Error()
	}
}
