package event

import "github.com/aibridge-dev/aibridge/pkg/types"

// SessionStartedData is the data for session.started events.
type SessionStartedData struct {
	Info *types.Session `json:"info"`
}

// SessionStoppedData is the data for session.stopped events.
type SessionStoppedData struct {
	Info *types.Session `json:"info"`
}

// PromptStartedData is the data for prompt.started events.
type PromptStartedData struct {
	SessionID string `json:"sessionID"`
	TurnID    string `json:"turnID"`
}

// PromptFinishedData is the data for prompt.finished events.
type PromptFinishedData struct {
	SessionID    string `json:"sessionID"`
	TurnID       string `json:"turnID"`
	Chars        int    `json:"chars"`
	Attempts     int    `json:"attempts"`
	DurationMS   int64  `json:"durationMs"`
}

// PromptFailedData is the data for prompt.failed events.
type PromptFailedData struct {
	SessionID string `json:"sessionID"`
	TurnID    string `json:"turnID"`
	Error     string `json:"error"`
}

// ProgressData is the data for prompt.progress events.
type ProgressData struct {
	SessionID string `json:"sessionID"`
	Notice    string `json:"notice"`
}
