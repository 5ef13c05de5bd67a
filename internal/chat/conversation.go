// Package chat implements the conversation state and send orchestration
// for a FoodSave chat surface.
//
// Each surface (TUI window, web session) owns exactly one Controller with
// its own Conversation, session identity, and mode flags. Nothing in this
// package is shared across surfaces.
package chat

import (
	"sync"

	"github.com/google/uuid"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Greeting is the assistant turn every conversation starts with.
const Greeting = "Cześć! Jestem Twoim asystentem FoodSave. W czym mogę dziś pomóc?"

// Message is a single conversation turn.
type Message struct {
	ID      uuid.UUID
	Role    string
	Content string
	// Data carries optional structured payload returned with an assistant
	// turn (weather readings, receipt items). Opaque to this package.
	Data map[string]any
	// IsError marks a synthesized assistant turn describing a failure.
	IsError bool
}

// Conversation holds the ordered, append-only turn history of one chat
// surface. The zero value is not useful, use NewConversation.
//
// Turns are only ever appended; the single destructive operation is
// Initialize, which resets the history to the greeting turn.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

// NewConversation creates a conversation initialized to the greeting turn.
func NewConversation() *Conversation {
	c := &Conversation{}
	c.Initialize()
	return c
}

// Initialize resets the history to a single assistant greeting turn.
func (c *Conversation) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []Message{{
		ID:      uuid.New(),
		Role:    RoleAssistant,
		Content: Greeting,
	}}
}

// AppendUser appends a user turn. Content validation (trimming, rejecting
// empty input) is the caller's responsibility; the store records verbatim.
func (c *Conversation) AppendUser(content string) Message {
	return c.append(Message{
		ID:      uuid.New(),
		Role:    RoleUser,
		Content: content,
	})
}

// AppendAssistant appends an assistant turn with an optional data payload.
func (c *Conversation) AppendAssistant(content string, data map[string]any) Message {
	return c.append(Message{
		ID:      uuid.New(),
		Role:    RoleAssistant,
		Content: content,
		Data:    data,
	})
}

// AppendError appends a synthesized assistant turn describing a failure,
// so the failure stays visible in the transcript.
func (c *Conversation) AppendError(message string) Message {
	return c.append(Message{
		ID:      uuid.New(),
		Role:    RoleAssistant,
		Content: "Wystąpił błąd: " + message,
		IsError: true,
	})
}

func (c *Conversation) append(m Message) Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, m)
	return m
}

// Messages returns a copy of the turn history in chronological order.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent turn. ok is false for an empty history
// (only possible before Initialize has run).
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
