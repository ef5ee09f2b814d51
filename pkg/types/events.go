package types

import (
	"encoding/json"
	"fmt"
)

// StreamEvent is one unit of the engine's asynchronous turn-progress
// sequence. Exactly one concrete variant exists per event kind; consumers
// switch over the variants and the compiler-visible set keeps the dispatch
// exhaustive.
type StreamEvent interface {
	EventType() string
}

// RetryEvent is emitted while the engine backs off a transient failure
// before re-opening the stream.
type RetryEvent struct {
	Type    string `json:"type"` // always "retry"
	Attempt int    `json:"attempt"`
	DelayMS int64  `json:"delayMs,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

func (e *RetryEvent) EventType() string { return "retry" }

// ContentDeltaEvent carries one fragment of the assistant's answer text.
type ContentDeltaEvent struct {
	Type string `json:"type"` // always "content"
	Text string `json:"text"`
}

func (e *ContentDeltaEvent) EventType() string { return "content" }

// ThoughtEvent carries a reasoning note the model surfaced while working.
type ThoughtEvent struct {
	Type        string `json:"type"` // always "thought"
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
}

func (e *ThoughtEvent) EventType() string { return "thought" }

// ToolCallRequestEvent reports that the engine is about to run a tool.
type ToolCallRequestEvent struct {
	Type   string         `json:"type"` // always "tool_call_request"
	CallID string         `json:"callID,omitempty"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
}

func (e *ToolCallRequestEvent) EventType() string { return "tool_call_request" }

// ToolCallResultEvent reports the outcome of a tool run.
type ToolCallResultEvent struct {
	Type         string `json:"type"` // always "tool_call_result"
	CallID       string `json:"callID,omitempty"`
	Name         string `json:"name"`
	Success      bool   `json:"success"`
	Output       string `json:"output,omitempty"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

func (e *ToolCallResultEvent) EventType() string { return "tool_call_result" }

// ToolCallConfirmationEvent reports that the engine is waiting on a tool
// confirmation decision.
type ToolCallConfirmationEvent struct {
	Type   string         `json:"type"` // always "tool_call_confirmation"
	CallID string         `json:"callID,omitempty"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
}

func (e *ToolCallConfirmationEvent) EventType() string { return "tool_call_confirmation" }

// FinishedEvent marks the end of one engine turn.
type FinishedEvent struct {
	Type   string      `json:"type"` // always "finished"
	Reason string      `json:"reason,omitempty"`
	Usage  *TokenUsage `json:"usage,omitempty"`
}

func (e *FinishedEvent) EventType() string { return "finished" }

// ErrorEvent reports a fatal engine condition. The stream will not recover.
type ErrorEvent struct {
	Type    string `json:"type"` // always "error"
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }

// CompressedEvent reports that the engine compacted the conversation history.
type CompressedEvent struct {
	Type             string `json:"type"` // always "compressed"
	OriginalTokens   int    `json:"originalTokens,omitempty"`
	CompressedTokens int    `json:"compressedTokens,omitempty"`
	FailureReason    string `json:"failureReason,omitempty"`
}

func (e *CompressedEvent) EventType() string { return "compressed" }

// LoopDetectedEvent reports that the engine detected a repetition loop and
// is ending the turn.
type LoopDetectedEvent struct {
	Type string `json:"type"` // always "loop_detected"
}

func (e *LoopDetectedEvent) EventType() string { return "loop_detected" }

// MaxTurnsEvent reports that the session hit the engine's turn limit.
type MaxTurnsEvent struct {
	Type string `json:"type"` // always "max_turns"
}

func (e *MaxTurnsEvent) EventType() string { return "max_turns" }

// CancelledEvent reports a user-initiated abort.
type CancelledEvent struct {
	Type string `json:"type"` // always "cancelled"
}

func (e *CancelledEvent) EventType() string { return "cancelled" }

// CitationEvent carries a block of source citations, one per line.
type CitationEvent struct {
	Type string `json:"type"` // always "citation"
	Text string `json:"text"`
}

func (e *CitationEvent) EventType() string { return "citation" }

// UnmarshalStreamEvent unmarshals a JSON stream event into the appropriate
// variant based on its "type" discriminator.
func UnmarshalStreamEvent(data []byte) (StreamEvent, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	var ev StreamEvent
	switch probe.Type {
	case "retry":
		ev = &RetryEvent{}
	case "content":
		ev = &ContentDeltaEvent{}
	case "thought":
		ev = &ThoughtEvent{}
	case "tool_call_request":
		ev = &ToolCallRequestEvent{}
	case "tool_call_result":
		ev = &ToolCallResultEvent{}
	case "tool_call_confirmation":
		ev = &ToolCallConfirmationEvent{}
	case "finished":
		ev = &FinishedEvent{}
	case "error":
		ev = &ErrorEvent{}
	case "compressed":
		ev = &CompressedEvent{}
	case "loop_detected":
		ev = &LoopDetectedEvent{}
	case "max_turns":
		ev = &MaxTurnsEvent{}
	case "cancelled":
		ev = &CancelledEvent{}
	case "citation":
		ev = &CitationEvent{}
	default:
		return nil, fmt.Errorf("unknown stream event type: %q", probe.Type)
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
