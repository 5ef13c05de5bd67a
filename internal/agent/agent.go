// Package agent implements the FoodSave orchestrator: a closed set of
// domain agents (conversation, weather, search, cooking, shopping, receipt
// analysis) behind a single Process entry point.
//
// Dispatch is a compile-time-checked table from agent Type to Handler;
// there is no reflective registry or dynamic class lookup. Adding an agent
// means adding a Type constant and wiring its Handler in the Orchestrator
// constructor.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Type identifies one domain agent. The set is closed.
type Type string

// Agent types.
const (
	TypeGeneral  Type = "general_conversation"
	TypeWeather  Type = "weather"
	TypeSearch   Type = "search"
	TypeCooking  Type = "cooking"
	TypeShopping Type = "shopping"
	TypeReceipt  Type = "receipt_analysis"
)

// Types lists every agent type, in routing priority order.
func Types() []Type {
	return []Type{TypeWeather, TypeSearch, TypeCooking, TypeShopping, TypeReceipt, TypeGeneral}
}

// Sentinel errors for orchestration.
var (
	// ErrUnknownAgent indicates no handler is wired for a type.
	ErrUnknownAgent = errors.New("unknown agent type")

	// ErrEmptyTask indicates the task text was empty after trimming.
	ErrEmptyTask = errors.New("empty task")
)

// States gates which agent capabilities are active for one command.
// A disabled capability routes to the general conversation agent instead.
type States struct {
	Weather  bool
	Search   bool
	Shopping bool
	Cooking  bool
}

// DefaultStates enables everything. Used when a request carries no
// explicit agent_states.
func DefaultStates() States {
	return States{Weather: true, Search: true, Shopping: true, Cooking: true}
}

// Command is one task for the orchestrator.
type Command struct {
	Task      string
	SessionID uuid.UUID

	// History is the prior conversation, oldest first. Loaded by the
	// orchestrator from the session store before dispatch.
	History []*ai.Message

	States        States
	UsePerplexity bool
	UseBielik     bool

	// ConversationState is opaque client-side context echoed through the
	// exchange and merged by the chat surface.
	ConversationState map[string]any
}

// Response is the result of one handled command.
type Response struct {
	Text string
	// Data carries structured payload for the UI (weather readings,
	// receipt items, search hits).
	Data map[string]any
	// State is updated conversation context to hand back to the client.
	State map[string]any
}

// Handler executes commands for exactly one agent type.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, cmd Command) (*Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (*Response, error) {
	return f(ctx, cmd)
}

// errorText returns the user-facing Polish failure text for an agent type.
// Every handler failure is recovered into one of these; raw error strings
// never reach the transcript.
func errorText(t Type) string {
	switch t {
	case TypeWeather:
		return "Wystąpił błąd podczas pobierania danych pogodowych. Proszę spróbować ponownie."
	case TypeSearch:
		return "Wystąpił błąd podczas wyszukiwania. Proszę spróbować ponownie."
	case TypeCooking:
		return "Wystąpił błąd podczas przetwarzania zapytania kulinarnego. Proszę spróbować ponownie."
	case TypeReceipt:
		return "Wystąpił błąd podczas przetwarzania paragonu. Proszę spróbować ponownie."
	default:
		return "Wystąpił błąd podczas przetwarzania polecenia. Proszę spróbować ponownie."
	}
}

// validate checks the command before dispatch.
func (c Command) validate() error {
	if c.Task == "" {
		return ErrEmptyTask
	}
	if c.SessionID == uuid.Nil {
		return fmt.Errorf("missing session id")
	}
	return nil
}
