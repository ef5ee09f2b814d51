// Package engine provides the model-interaction engine behind a session:
// it owns the provider connection and conversation history, and turns one
// prompt submission into an ordered stream of typed events.
package engine

import (
	"context"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

// Engine is the contract the session controller drives. One Engine instance
// backs exactly one session.
type Engine interface {
	// StartChat establishes the provider connection. It must be called
	// before any other operation; a failed StartChat leaves the engine
	// unusable and is safe to retry.
	StartChat(ctx context.Context) error

	// SetTools installs the tool definitions offered to the model on
	// subsequent turns.
	SetTools(tools []types.ToolInfo) error

	// SendMessageStream submits one message and returns the event stream
	// for that turn. turnID identifies the logical turn; continuation
	// attempts reuse the same turnID so the engine treats them as one
	// turn. maxTurns caps the engine's internal turn count per request.
	SendMessageStream(ctx context.Context, message, turnID string, maxTurns int) (EventStream, error)

	// History returns the conversation history. When curated is true,
	// system entries and empty turns are filtered out.
	History(curated bool) []types.Turn

	// SetHistory replaces the conversation history.
	SetHistory(turns []types.Turn)

	// ClearHistory discards the conversation history.
	ClearHistory()

	// SetSystemInstruction installs a fixed instruction that conditions
	// every subsequent turn.
	SetSystemInstruction(instruction string)

	// Close releases the provider connection. Safe to call repeatedly.
	Close() error
}

// EventStream is an ordered sequence of stream events for one turn.
// Recv returns io.EOF when the turn is complete.
type EventStream interface {
	Recv() (types.StreamEvent, error)
	Close()
}
