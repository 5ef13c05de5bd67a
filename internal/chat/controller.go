package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/foodsave-ai/foodsave/internal/client"
	"github.com/foodsave-ai/foodsave/internal/log"
)

// FallbackResponse is shown when the backend reports success but returns
// no response text.
const FallbackResponse = "Przepraszam, nie udało się przetworzyć odpowiedzi. Spróbuj ponownie."

// unknownErrorMessage fills the error slot when a failure carries no
// message of its own.
const unknownErrorMessage = "nieznany błąd"

// Executor runs one orchestrator task against the backend.
// *client.Client satisfies this; tests substitute fakes.
type Executor interface {
	ExecuteTask(ctx context.Context, req client.TaskRequest) (*client.TaskResponse, error)
}

// Options are the per-surface mode flags. They are inputs to Send only:
// Send snapshots them on entry and never mutates them, so toggling a flag
// mid-request does not affect the request already in flight.
type Options struct {
	// UseBielik selects the Bielik model over the default one.
	UseBielik bool
	// UsePerplexity enables external web search context.
	UsePerplexity bool
	// ShoppingMode declares the shopping agent capabilities active.
	ShoppingMode bool
	// CookingMode declares the cooking agent capabilities active.
	CookingMode bool
}

// DefaultOptions returns the flag defaults: Bielik on, everything else off.
func DefaultOptions() Options {
	return Options{UseBielik: true}
}

// Controller orchestrates the send cycle of one chat surface: it owns the
// conversation history, the session identity, the mode flags, the loading
// flag, the last-error slot, and the cancellation handle of the in-flight
// request.
//
// A send cycle moves Idle → Sending → (Succeeded | Failed) → Idle. The
// controller does not serialize overlapping sends; a Send issued while
// another is loading is silently ignored, matching the UI contract of
// disabling the input while loading.
type Controller struct {
	backend Executor
	logger  log.Logger

	mu        sync.Mutex
	sessionID uuid.UUID
	conv      *Conversation
	opts      Options
	convState map[string]any

	loading bool
	lastErr string

	// generation is bumped by Clear and Close. A send that resolves after
	// its generation has passed must not touch any state.
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

// NewController creates a controller with a fresh session id and a
// conversation initialized to the greeting turn.
func NewController(backend Executor, logger log.Logger, opts Options) *Controller {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Controller{
		backend:   backend,
		logger:    logger,
		sessionID: uuid.New(),
		conv:      NewConversation(),
		opts:      opts,
	}
}

// Send runs one complete send cycle and returns when it resolves.
//
// Empty or whitespace-only content is ignored, as is a Send issued while
// another is still loading; neither touches the conversation or calls the
// backend. A request canceled by Clear or Close resolves silently: no error
// slot, no error turn.
func (c *Controller) Send(ctx context.Context, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return
	}

	c.mu.Lock()
	if c.closed || c.loading {
		c.mu.Unlock()
		return
	}
	c.loading = true
	c.lastErr = ""
	c.conv.AppendUser(trimmed)

	// Snapshot everything the request needs while holding the lock.
	gen := c.generation
	req := client.TaskRequest{
		Task:              trimmed,
		SessionID:         c.sessionID.String(),
		ConversationState: c.convState,
		AgentStates: &client.AgentStates{
			Weather:  true,
			Search:   c.opts.UsePerplexity,
			Shopping: c.opts.ShoppingMode,
			Cooking:  c.opts.CookingMode,
		},
		UsePerplexity: c.opts.UsePerplexity,
		UseBielik:     c.opts.UseBielik,
	}

	sendCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	resp, err := c.backend.ExecuteTask(sendCtx, req)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.generation {
		// Clear or Close won the race; the surface this cycle belonged to
		// is gone. Drop the result on the floor.
		return
	}
	c.cancel = nil
	c.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.logger.Debug("send canceled", "session_id", req.SessionID)
			return
		}
		msg := err.Error()
		var backendErr *client.BackendError
		if errors.As(err, &backendErr) {
			msg = backendErr.Message
		}
		if msg == "" {
			msg = unknownErrorMessage
		}
		c.lastErr = msg
		c.conv.AppendError(msg)
		c.logger.Warn("send failed", "session_id", req.SessionID, "error", msg)
		return
	}

	text := resp.Response
	if strings.TrimSpace(text) == "" {
		text = FallbackResponse
	}
	c.conv.AppendAssistant(text, resp.Data)
	if resp.ConversationState != nil {
		c.convState = resp.ConversationState
	}
}

// Clear resets the surface: cancels any in-flight send, reinitializes the
// conversation to the greeting turn, and issues a fresh session id. The
// prior session's server-side context is simply abandoned.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
	c.lastErr = ""
	c.convState = nil
	c.sessionID = uuid.New()
	c.conv.Initialize()
}

// Close tears the surface down, canceling any in-flight send. A resolution
// arriving after Close must not mutate any state. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
}

// ToggleBielik flips the model flag and returns the new value.
func (c *Controller) ToggleBielik() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.UseBielik = !c.opts.UseBielik
	return c.opts.UseBielik
}

// TogglePerplexity flips the external-search flag and returns the new value.
func (c *Controller) TogglePerplexity() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.UsePerplexity = !c.opts.UsePerplexity
	return c.opts.UsePerplexity
}

// ToggleShopping flips the shopping-context flag and returns the new value.
func (c *Controller) ToggleShopping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.ShoppingMode = !c.opts.ShoppingMode
	return c.opts.ShoppingMode
}

// ToggleCooking flips the cooking-context flag and returns the new value.
func (c *Controller) ToggleCooking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.CookingMode = !c.opts.CookingMode
	return c.opts.CookingMode
}

// Messages returns a copy of the conversation history.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()
	return conv.Messages()
}

// Loading reports whether a send cycle is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the most recent error message, or "" when the last cycle
// succeeded. Advisory only; it never blocks future sends.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SessionID returns the current session identifier.
func (c *Controller) SessionID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Options returns the current flag values.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}
