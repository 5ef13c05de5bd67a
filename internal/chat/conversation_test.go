package chat

import (
	"strings"
	"testing"
)

func TestNewConversation_StartsWithGreeting(t *testing.T) {
	conv := NewConversation()

	msgs := conv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant {
		t.Errorf("greeting role = %q, want %q", msgs[0].Role, RoleAssistant)
	}
	if msgs[0].Content != Greeting {
		t.Errorf("greeting content = %q, want %q", msgs[0].Content, Greeting)
	}
	if msgs[0].IsError {
		t.Error("greeting must not be an error turn")
	}
}

func TestConversation_AppendPreservesOrder(t *testing.T) {
	conv := NewConversation()

	conv.AppendUser("Co mam w spiżarni?")
	conv.AppendAssistant("Masz mleko i chleb.", map[string]any{"products": 2})
	conv.AppendUser("Dodaj masło")

	msgs := conv.Messages()
	want := []struct {
		role    string
		content string
	}{
		{RoleAssistant, Greeting},
		{RoleUser, "Co mam w spiżarni?"},
		{RoleAssistant, "Masz mleko i chleb."},
		{RoleUser, "Dodaj masło"},
	}
	if len(msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(want))
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Content != w.content {
			t.Errorf("message[%d] = {%s %q}, want {%s %q}",
				i, msgs[i].Role, msgs[i].Content, w.role, w.content)
		}
	}
	if msgs[2].Data["products"] != 2 {
		t.Errorf("data payload not preserved: %v", msgs[2].Data)
	}
}

func TestConversation_AppendError(t *testing.T) {
	conv := NewConversation()

	msg := conv.AppendError("network down")

	if !msg.IsError {
		t.Error("IsError = false, want true")
	}
	if msg.Role != RoleAssistant {
		t.Errorf("role = %q, want assistant", msg.Role)
	}
	if msg.Content != "Wystąpił błąd: network down" {
		t.Errorf("content = %q", msg.Content)
	}
}

func TestConversation_InitializeResetsHistory(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("hello")
	conv.AppendAssistant("hi", nil)

	conv.Initialize()

	if conv.Len() != 1 {
		t.Fatalf("Len() = %d after Initialize, want 1", conv.Len())
	}
	last, ok := conv.Last()
	if !ok || last.Content != Greeting {
		t.Errorf("Last() = %+v, want greeting", last)
	}
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	conv := NewConversation()
	conv.AppendUser("original")

	msgs := conv.Messages()
	msgs[1].Content = "mutated"

	fresh := conv.Messages()
	if fresh[1].Content != "original" {
		t.Error("external mutation leaked into the store")
	}
}

func TestConversation_UniqueMessageIDs(t *testing.T) {
	conv := NewConversation()
	for range 10 {
		conv.AppendUser("x")
	}

	seen := map[string]bool{}
	for _, m := range conv.Messages() {
		id := m.ID.String()
		if seen[id] {
			t.Fatalf("duplicate message id %s", id)
		}
		seen[id] = true
	}
	if strings.TrimSpace(conv.Messages()[0].ID.String()) == "" {
		t.Error("empty message id")
	}
}
