// Package types provides the core data types shared across the aibridge server.
package types

// Session is the metadata record for one conversational session. The live
// engine handle is owned by the session controller; this record is what gets
// persisted and listed.
type Session struct {
	ID          string      `json:"id"`
	Tool        string      `json:"tool"`
	Model       string      `json:"model"`
	ProjectRoot string      `json:"projectRoot,omitempty"`
	Active      bool        `json:"active"`
	Time        SessionTime `json:"time"`
}

// SessionTime contains timestamps for a session, in unix milliseconds.
type SessionTime struct {
	Created    int64 `json:"created"`
	LastActive int64 `json:"lastActive"`
}

// Turn is one entry of a session's conversation history as exposed through
// the engine's history accessors.
type Turn struct {
	Role string `json:"role"` // "user" | "assistant" | "system"
	Text string `json:"text"`
}

// TokenUsage reports token consumption for a finished turn.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// ToolInfo describes a tool definition handed to the engine via SetTools.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  []byte `json:"parameters,omitempty"` // JSON Schema
}
