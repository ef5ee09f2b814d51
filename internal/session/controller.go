package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/aibridge-dev/aibridge/internal/engine"
	"github.com/aibridge-dev/aibridge/internal/event"
	"github.com/aibridge-dev/aibridge/internal/logging"
	"github.com/aibridge-dev/aibridge/internal/storage"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

const (
	// MaxContinuations bounds the automatic follow-up attempts issued when
	// an engine turn completes with no content.
	MaxContinuations = 3

	// continuationDirective replaces the prompt text on continuation
	// attempts.
	continuationDirective = "Please continue."

	// DefaultPromptTimeout applies when the caller supplies no budget.
	// Effectively unbounded for interactive use.
	DefaultPromptTimeout = 24 * time.Hour
)

// ProgressFunc receives human-readable progress notices during a prompt
// submission. Purely observational.
type ProgressFunc func(notice string)

// Controller owns one session's lifecycle and serializes prompt submissions
// against it. The engine handle is exclusively owned by the controller; the
// metadata record is persisted through the store on lifecycle changes.
type Controller struct {
	mu   sync.Mutex
	key  string
	info *types.Session

	engine engine.Engine
	cfg    *types.Config
	store  *storage.Store

	// admission is a capacity-1 token channel: holding the token grants
	// exclusive access to the engine for one submission. Waiters are
	// admitted in FIFO order per session.
	admission chan struct{}

	active bool
	log    zerolog.Logger
}

// NewController creates a controller for the given session record. The
// engine is not started until Start is called.
func NewController(key string, info *types.Session, eng engine.Engine, cfg *types.Config, store *storage.Store) *Controller {
	return &Controller{
		key:       key,
		info:      info,
		engine:    eng,
		cfg:       cfg,
		store:     store,
		admission: make(chan struct{}, 1),
		log:       logging.Component("session").With().Str("session", info.ID).Logger(),
	}
}

// Info returns a copy of the session's metadata record.
func (c *Controller) Info() types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.info
}

// Key returns the composite registry key this controller is registered under.
func (c *Controller) Key() string {
	return c.key
}

// Start activates the session: it opens the engine connection, installs the
// optional system instruction and records lifecycle timestamps. Calling
// Start on an already-active session is a no-op. A failed activation leaves
// the session fully inactive.
func (c *Controller) Start(ctx context.Context, systemInstruction string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		c.log.Debug().Msg("start called on active session")
		return nil
	}

	if err := c.engine.StartChat(ctx); err != nil {
		c.log.Error().Err(err).Msg("session activation failed")
		_ = c.engine.Close()
		return err
	}

	if systemInstruction == "" {
		systemInstruction = c.cfg.SystemInstruction
	}
	if systemInstruction != "" {
		c.engine.SetSystemInstruction(systemInstruction)
	}

	now := time.Now().UnixMilli()
	if c.info.Time.Created == 0 {
		c.info.Time.Created = now
	}
	c.info.Time.LastActive = now
	c.info.Active = true
	c.active = true

	c.persist(ctx)
	event.Publish(event.Event{Type: event.SessionStarted, Data: event.SessionStartedData{Info: c.info}})

	c.log.Info().Str("model", c.info.Model).Msg("session started")
	return nil
}

// Stop deactivates the session and releases the engine handle. Safe to call
// repeatedly and safe to call on a session that was never started. Stop does
// not interrupt an in-flight submission; it only closes the engine handle.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return nil
	}
	c.active = false
	c.info.Active = false
	c.info.Time.LastActive = time.Now().UnixMilli()

	err := c.engine.Close()

	c.persist(context.Background())
	event.Publish(event.Event{Type: event.SessionStopped, Data: event.SessionStoppedData{Info: c.info}})

	c.log.Info().Msg("session stopped")
	return err
}

// IsActive reports whether activation succeeded and Stop has not since been
// called.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SendPrompt submits one prompt against the session and returns the
// accumulated answer. Submissions are admitted strictly in arrival order;
// a submission does not touch the engine until the previous one has fully
// released its token.
//
// A zero or negative timeout selects DefaultPromptTimeout. The budget spans
// the whole call, continuation attempts included.
func (c *Controller) SendPrompt(ctx context.Context, text string, timeout time.Duration, onProgress ProgressFunc) (string, error) {
	if !c.IsActive() {
		return "", ErrNotActive
	}

	select {
	case c.admission <- struct{}{}:
	case <-ctx.Done():
		return "", wrapCtxErr(ctx.Err())
	}
	defer func() { <-c.admission }()

	// Re-check after admission; Stop may have run while queued.
	if !c.IsActive() {
		return "", ErrNotActive
	}

	if timeout <= 0 {
		if c.cfg.PromptTimeoutMS > 0 {
			timeout = time.Duration(c.cfg.PromptTimeoutMS) * time.Millisecond
		} else {
			timeout = DefaultPromptTimeout
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	turnID := ulid.Make().String()
	started := time.Now()
	event.Publish(event.Event{Type: event.PromptStarted, Data: event.PromptStartedData{
		SessionID: c.info.ID,
		TurnID:    turnID,
	}})

	var answer strings.Builder
	prompt := text
	attempts := 1

	for {
		if err := c.runAttempt(ctx, prompt, turnID, &answer, onProgress); err != nil {
			err = wrapCtxErr(err)
			event.Publish(event.Event{Type: event.PromptFailed, Data: event.PromptFailedData{
				SessionID: c.info.ID,
				TurnID:    turnID,
				Error:     err.Error(),
			}})
			c.log.Warn().Err(err).Str("turn", turnID).Msg("prompt failed")
			return "", err
		}

		if answer.Len() > 0 {
			break
		}

		// Empty completed attempt: recoverable, not a failure.
		continuations := attempts - 1
		if continuations >= MaxContinuations {
			c.log.Debug().Str("turn", turnID).Msg("continuations exhausted, returning empty answer")
			break
		}
		c.notify(onProgress, fmt.Sprintf("Empty turn, requesting continuation (%d/%d)", continuations+1, MaxContinuations))
		prompt = continuationDirective
		attempts++
	}

	c.touch(ctx)
	event.Publish(event.Event{Type: event.PromptFinished, Data: event.PromptFinishedData{
		SessionID:  c.info.ID,
		TurnID:     turnID,
		Chars:      answer.Len(),
		Attempts:   attempts,
		DurationMS: time.Since(started).Milliseconds(),
	}})

	return answer.String(), nil
}

// runAttempt drives one engine turn, folding every stream event through the
// reducer into the shared answer buffer.
func (c *Controller) runAttempt(ctx context.Context, prompt, turnID string, answer *strings.Builder, onProgress ProgressFunc) error {
	stream, err := c.engine.SendMessageStream(ctx, prompt, turnID, c.cfg.MaxTurnsPerRequest)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		ev, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		r := Reduce(ev, answer.Len())
		if r.Content != "" {
			answer.WriteString(r.Content)
		}
		if r.Progress != "" {
			c.notify(onProgress, r.Progress)
		}
		if r.Err != nil {
			return r.Err
		}
	}
}

// History returns the engine's conversation history.
func (c *Controller) History(curated bool) ([]types.Turn, error) {
	if !c.IsActive() {
		return nil, ErrNotActive
	}
	return c.engine.History(curated), nil
}

// SetHistory replaces the engine's conversation history.
func (c *Controller) SetHistory(turns []types.Turn) error {
	if !c.IsActive() {
		return ErrNotActive
	}
	c.engine.SetHistory(turns)
	return nil
}

// ClearHistory discards the engine's conversation history.
func (c *Controller) ClearHistory() error {
	if !c.IsActive() {
		return ErrNotActive
	}
	c.engine.ClearHistory()
	return nil
}

func (c *Controller) notify(onProgress ProgressFunc, notice string) {
	if onProgress != nil {
		onProgress(notice)
	}
	event.Publish(event.Event{Type: event.Progress, Data: event.ProgressData{
		SessionID: c.info.ID,
		Notice:    notice,
	}})
}

// touch updates the last-activity timestamp and persists the record.
func (c *Controller) touch(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.Time.LastActive = time.Now().UnixMilli()
	c.persist(ctx)
}

// persist writes the metadata record. Persistence failures are logged, not
// propagated; the in-memory session stays authoritative.
func (c *Controller) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	if err := c.store.PutSession(ctx, c.key, c.info); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session record")
	}
}

// wrapCtxErr maps context errors onto the session error taxonomy so callers
// can distinguish a blown budget from an upstream failure.
func wrapCtxErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled):
		return ErrCancelled
	default:
		return err
	}
}
