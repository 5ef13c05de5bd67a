package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// HistoryStore is the slice of the session store the orchestrator needs.
type HistoryStore interface {
	// EnsureSession creates the session if it does not exist yet.
	EnsureSession(ctx context.Context, id uuid.UUID, title string) error

	// History returns the session's messages, oldest first.
	History(ctx context.Context, id uuid.UUID) ([]*ai.Message, error)

	// AppendMessages appends messages to the session history.
	AppendMessages(ctx context.Context, id uuid.UUID, msgs []*ai.Message) error
}

// Config carries the orchestrator's dependencies.
type Config struct {
	Handlers map[Type]Handler
	Sessions HistoryStore
	Logger   log.Logger

	// MaxHistoryMessages bounds how much history is loaded per command.
	// Zero uses the default of 100.
	MaxHistoryMessages int
}

func (cfg Config) validate() error {
	if len(cfg.Handlers) == 0 {
		return errors.New("at least one handler is required")
	}
	if _, ok := cfg.Handlers[TypeGeneral]; !ok {
		return errors.New("general conversation handler is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Result is the orchestrator's reply to one command.
type Result struct {
	Agent   Type
	Success bool
	Text    string
	Data    map[string]any
	State   map[string]any
	// ErrMessage is set when Success is false. Text then carries the
	// user-facing Polish failure description.
	ErrMessage string
}

// Orchestrator routes commands to domain agents and maintains the
// server-side conversation history.
type Orchestrator struct {
	handlers   map[Type]Handler
	sessions   HistoryStore
	logger     log.Logger
	maxHistory int
}

// New creates an orchestrator from the given configuration.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	maxHistory := cfg.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = 100
	}

	handlers := make(map[Type]Handler, len(cfg.Handlers))
	for t, h := range cfg.Handlers {
		if h == nil {
			return nil, fmt.Errorf("%w: nil handler for %q", ErrUnknownAgent, t)
		}
		handlers[t] = h
	}

	return &Orchestrator{
		handlers:   handlers,
		sessions:   cfg.Sessions,
		logger:     cfg.Logger,
		maxHistory: maxHistory,
	}, nil
}

// Process executes one command end to end: intent detection, history
// load, dispatch, history append. Handler failures never escape as
// errors; they are recovered into a failed Result with a user-facing
// text. The returned error covers invalid commands only.
func (o *Orchestrator) Process(ctx context.Context, cmd Command) (*Result, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	agentType := DetectIntent(cmd.Task, cmd.States)
	handler, ok := o.handlers[agentType]
	if !ok {
		// A capability passed intent gating but has no handler wired;
		// degrade to general conversation rather than failing.
		o.logger.Warn("no handler for agent type, using general",
			"agent", agentType, "session_id", cmd.SessionID)
		agentType = TypeGeneral
		handler = o.handlers[TypeGeneral]
	}

	if err := o.sessions.EnsureSession(ctx, cmd.SessionID, sessionTitle(cmd.Task)); err != nil {
		o.logger.Warn("ensuring session", "error", err, "session_id", cmd.SessionID)
	}

	history, err := o.sessions.History(ctx, cmd.SessionID)
	if err != nil {
		o.logger.Warn("loading history", "error", err, "session_id", cmd.SessionID)
		// Proceed without history; a degraded answer beats none.
	}
	if len(history) > o.maxHistory {
		history = history[len(history)-o.maxHistory:]
	}
	cmd.History = history

	o.logger.Debug("dispatching command",
		"agent", agentType,
		"session_id", cmd.SessionID,
		"history_len", len(history))

	resp, err := handler.Handle(ctx, cmd)
	if err != nil {
		o.logger.Error("agent failed",
			"agent", agentType,
			"session_id", cmd.SessionID,
			"error", err)
		return &Result{
			Agent:      agentType,
			Success:    false,
			Text:       errorText(agentType),
			ErrMessage: err.Error(),
		}, nil
	}

	// Best-effort history append; the user already has the answer.
	newMsgs := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(cmd.Task)),
		ai.NewModelMessage(ai.NewTextPart(resp.Text)),
	}
	if err := o.sessions.AppendMessages(ctx, cmd.SessionID, newMsgs); err != nil {
		o.logger.Warn("appending history", "error", err, "session_id", cmd.SessionID)
	}

	return &Result{
		Agent:   agentType,
		Success: true,
		Text:    resp.Text,
		Data:    resp.Data,
		State:   resp.State,
	}, nil
}

// sessionTitle derives a session title from the first task.
const titleMaxRunes = 60

func sessionTitle(task string) string {
	runes := []rune(task)
	if len(runes) <= titleMaxRunes {
		return task
	}
	return string(runes[:titleMaxRunes-3]) + "..."
}
