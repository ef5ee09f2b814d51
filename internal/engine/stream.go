package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

// chatStream adapts an eino message stream into the typed event stream the
// session controller consumes. Events come out in emission order: queued
// retry events first, then translated chunks, then a single finished event.
type chatStream struct {
	engine  *ChatEngine
	reader  *schema.StreamReader[*schema.Message]
	pending []types.StreamEvent

	content      strings.Builder
	finishReason string
	usage        *types.TokenUsage
	toolsSeen    map[string]bool

	finished bool
	done     bool
}

func newChatStream(e *ChatEngine, reader *schema.StreamReader[*schema.Message], pending []types.StreamEvent) *chatStream {
	return &chatStream{
		engine:    e,
		reader:    reader,
		pending:   pending,
		toolsSeen: make(map[string]bool),
	}
}

// Recv returns the next event, or io.EOF when the turn is complete.
func (s *chatStream) Recv() (types.StreamEvent, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}

		if s.done {
			return nil, io.EOF
		}

		msg, err := s.reader.Recv()
		if err == io.EOF {
			s.done = true
			s.engine.recordAssistant(s.content.String())
			if !s.finished {
				s.finished = true
				return &types.FinishedEvent{Type: "finished", Reason: s.finishReason, Usage: s.usage}, nil
			}
			return nil, io.EOF
		}
		if err != nil {
			s.done = true
			s.engine.recordAssistant(s.content.String())
			if errors.Is(err, context.Canceled) {
				return &types.CancelledEvent{Type: "cancelled"}, nil
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return &types.ErrorEvent{Type: "error", Message: err.Error()}, nil
		}

		s.translate(msg)
	}
}

// translate converts one message chunk into zero or more events.
func (s *chatStream) translate(msg *schema.Message) {
	if msg.Content != "" {
		s.content.WriteString(msg.Content)
		s.pending = append(s.pending, &types.ContentDeltaEvent{Type: "content", Text: msg.Content})
	}

	if msg.ReasoningContent != "" {
		subject, description := splitThought(msg.ReasoningContent)
		s.pending = append(s.pending, &types.ThoughtEvent{
			Type:        "thought",
			Subject:     subject,
			Description: description,
		})
	}

	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == "" || s.toolsSeen[tc.ID] {
			continue
		}
		s.toolsSeen[tc.ID] = true

		var args map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		s.pending = append(s.pending, &types.ToolCallRequestEvent{
			Type:   "tool_call_request",
			CallID: tc.ID,
			Name:   tc.Function.Name,
			Args:   args,
		})
	}

	if msg.ResponseMeta != nil {
		if msg.ResponseMeta.Usage != nil {
			s.usage = &types.TokenUsage{
				Input:  msg.ResponseMeta.Usage.PromptTokens,
				Output: msg.ResponseMeta.Usage.CompletionTokens,
				Total:  msg.ResponseMeta.Usage.TotalTokens,
			}
		}
		if msg.ResponseMeta.FinishReason != "" {
			s.finishReason = msg.ResponseMeta.FinishReason
		}
	}
}

// Close drains and releases the underlying stream. Partial content received
// so far is still recorded to history.
func (s *chatStream) Close() {
	if !s.done {
		s.done = true
		s.engine.recordAssistant(s.content.String())
	}
	s.reader.Close()
}

// splitThought derives a short subject line and a description from a
// reasoning fragment.
func splitThought(text string) (subject, description string) {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
	}
	return text, ""
}
