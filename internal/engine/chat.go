package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/aibridge-dev/aibridge/internal/config"
	"github.com/aibridge-dev/aibridge/internal/logging"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

const (
	// MaxStreamRetries is the maximum number of retries when opening a stream.
	MaxStreamRetries = 3
	// RetryInitialInterval is the initial interval for exponential backoff.
	RetryInitialInterval = time.Second
	// RetryMaxInterval is the maximum interval for exponential backoff.
	RetryMaxInterval = 30 * time.Second
	// RetryMaxElapsedTime is the maximum total time for retries.
	RetryMaxElapsedTime = 2 * time.Minute
)

// newRetryBackoff creates an exponential backoff with jitter for stream-open
// retries. Jitter avoids thundering-herd behavior against the provider.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.MaxElapsedTime = RetryMaxElapsedTime
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxStreamRetries), ctx)
}

// ChatEngine is the eino-backed Engine implementation. It is safe for use by
// one session controller; the controller's admission token guarantees one
// in-flight turn at a time.
type ChatEngine struct {
	mu sync.Mutex

	cfg      *types.Config
	authMode config.AuthMode

	providerID string
	modelID    string

	chatModel model.ToolCallingChatModel
	system    string
	tools     []*schema.ToolInfo
	history   []*schema.Message

	started bool
	log     zerolog.Logger
}

// NewChatEngine creates an engine from configuration. No connection is made
// until StartChat.
func NewChatEngine(cfg *types.Config, mode config.AuthMode) *ChatEngine {
	providerID, modelID := parseModelRef(cfg.Model)
	return &ChatEngine{
		cfg:        cfg,
		authMode:   mode,
		providerID: providerID,
		modelID:    modelID,
		log:        logging.Component("engine"),
	}
}

// Model returns the "provider/model" reference this engine talks to.
func (e *ChatEngine) Model() string {
	return e.providerID + "/" + e.modelID
}

// StartChat builds the provider chat model. A failure leaves the engine
// exactly as it was, so the caller can retry.
func (e *ChatEngine) StartChat(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	cm, err := buildChatModel(ctx, e.providerID, e.modelID, e.cfg, e.authMode)
	if err != nil {
		return fmt.Errorf("failed to start chat: %w", err)
	}

	e.chatModel = cm
	e.history = nil
	e.started = true
	e.log.Debug().Str("provider", e.providerID).Str("model", e.modelID).
		Str("auth", string(e.authMode)).Msg("chat started")
	return nil
}

// SetTools installs tool definitions for subsequent turns.
func (e *ChatEngine) SetTools(tools []types.ToolInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools = toEinoTools(tools)
	return nil
}

// SetSystemInstruction installs the fixed instruction for every turn.
func (e *ChatEngine) SetSystemInstruction(instruction string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.system = instruction
}

// SendMessageStream submits one message and opens the event stream for that
// turn. Transient stream-open failures are retried with backoff; each retry
// surfaces as a retry event at the head of the returned stream.
func (e *ChatEngine) SendMessageStream(ctx context.Context, message, turnID string, maxTurns int) (EventStream, error) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil, fmt.Errorf("chat not started")
	}

	userMsg := &schema.Message{Role: schema.User, Content: message}

	msgs := make([]*schema.Message, 0, len(e.history)+2)
	if e.system != "" {
		msgs = append(msgs, &schema.Message{Role: schema.System, Content: e.system})
	}
	msgs = append(msgs, e.history...)
	msgs = append(msgs, userMsg)

	cm := e.chatModel
	tools := e.tools
	e.history = append(e.history, userMsg)
	e.mu.Unlock()

	if len(tools) > 0 {
		var err error
		cm, err = cm.WithTools(tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	var pending []types.StreamEvent
	retry := newRetryBackoff(ctx)
	attempt := 0

	for {
		reader, err := cm.Stream(ctx, msgs)
		if err == nil {
			e.log.Debug().Str("turn", turnID).Int("retries", attempt).Msg("stream opened")
			return newChatStream(e, reader, pending), nil
		}

		next := retry.NextBackOff()
		if next == backoff.Stop {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}

		attempt++
		pending = append(pending, &types.RetryEvent{
			Type:    "retry",
			Attempt: attempt,
			DelayMS: next.Milliseconds(),
			Cause:   err.Error(),
		})
		e.log.Warn().Err(err).Str("turn", turnID).Dur("delay", next).Msg("stream open failed, retrying")

		select {
		case <-time.After(next):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// History returns the conversation history. Curated history omits empty
// entries; the raw form returns everything recorded.
func (e *ChatEngine) History(curated bool) []types.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()

	turns := make([]types.Turn, 0, len(e.history))
	for _, msg := range e.history {
		if curated && msg.Content == "" {
			continue
		}
		turns = append(turns, types.Turn{Role: string(msg.Role), Text: msg.Content})
	}
	return turns
}

// SetHistory replaces the conversation history.
func (e *ChatEngine) SetHistory(turns []types.Turn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		role := schema.RoleType(t.Role)
		switch role {
		case schema.User, schema.Assistant, schema.System:
		default:
			role = schema.User
		}
		history = append(history, &schema.Message{Role: role, Content: t.Text})
	}
	e.history = history
}

// ClearHistory discards the conversation history.
func (e *ChatEngine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

// Close releases the chat model. Safe to call repeatedly.
func (e *ChatEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.chatModel = nil
	e.started = false
	return nil
}

// recordAssistant appends the assistant's accumulated answer to history.
// Empty answers leave no trace; the next attempt continues the same turn.
func (e *ChatEngine) recordAssistant(text string) {
	if text == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = append(e.history, &schema.Message{Role: schema.Assistant, Content: text})
}
