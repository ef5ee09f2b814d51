package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotActive is returned when an operation is attempted before Start
	// succeeded or after Stop.
	ErrNotActive = errors.New("session not active")

	// ErrCancelled is returned when a submission is aborted by the user or
	// by process shutdown.
	ErrCancelled = errors.New("prompt cancelled")

	// ErrTimeout is returned when the shared wall-clock budget for a
	// SendPrompt call is exceeded.
	ErrTimeout = errors.New("prompt timed out")
)

// UpstreamError reports a fatal condition from the underlying engine.
type UpstreamError struct {
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("upstream error (status %s): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}
