package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModel provides deterministic model responses for agent tests.
// User messages are matched against registered substrings; the first
// match wins, otherwise the fallback is returned.
//
// Thread-safe for concurrent use.
type MockModel struct {
	mu       sync.Mutex
	rules    []modelRule
	fallback string
	calls    []ModelCall
}

type modelRule struct {
	pattern  string
	response string
}

// ModelCall records a single generate call against the mock.
type ModelCall struct {
	UserMessage string
	Response    string
}

// NewMockModel creates a mock model with the given fallback response.
func NewMockModel(fallback string) *MockModel {
	return &MockModel{fallback: fallback}
}

// Respond registers a pattern-response pair. The pattern is matched
// case-insensitively as a substring of the last user message.
func (m *MockModel) Respond(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, modelRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// Calls returns a copy of all recorded calls.
func (m *MockModel) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ModelCall(nil), m.calls...)
}

// Register defines the mock as a Genkit model under the given
// provider-qualified name, e.g. "mock/bielik".
func (m *MockModel) Register(g *genkit.Genkit, name string) ai.Model {
	return genkit.DefineModel(g, name, &ai.ModelOptions{
		Label: name,
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	text := m.fallback
	lower := strings.ToLower(userText)
	for _, r := range m.rules {
		if strings.Contains(lower, r.pattern) {
			text = r.response
			break
		}
	}
	m.calls = append(m.calls, ModelCall{UserMessage: userText, Response: text})
	m.mu.Unlock()

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(text)},
		})
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: []*ai.Part{ai.NewTextPart(text)},
		},
	}, nil
}
