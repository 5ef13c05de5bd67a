package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/foodsave-ai/foodsave/internal/client"
	"github.com/foodsave-ai/foodsave/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeExecutor scripts backend behavior per call and records requests.
type fakeExecutor struct {
	mu       sync.Mutex
	requests []client.TaskRequest

	resp *client.TaskResponse
	err  error

	// block, when non-nil, is closed by the test to release a pending call.
	block chan struct{}
	// started is signaled once a call is in flight.
	started chan struct{}
}

func (f *fakeExecutor) ExecuteTask(ctx context.Context, req client.TaskRequest) (*client.TaskResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	started := f.started
	block := f.block
	f.mu.Unlock()

	if started != nil {
		close(started)
		f.mu.Lock()
		f.started = nil
		f.mu.Unlock()
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return f.resp, f.err
}

func (f *fakeExecutor) calls() []client.TaskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]client.TaskRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestController(backend Executor) *Controller {
	return NewController(backend, log.NewNop(), DefaultOptions())
}

func TestSend_Success(t *testing.T) {
	backend := &fakeExecutor{resp: &client.TaskResponse{
		Success:  true,
		Response: "Hi there",
	}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "Hello")

	msgs := ctrl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (greeting, user, assistant)", len(msgs))
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "Hello" {
		t.Errorf("user turn = %+v", msgs[1])
	}
	if msgs[2].Role != RoleAssistant || msgs[2].Content != "Hi there" {
		t.Errorf("assistant turn = %+v", msgs[2])
	}
	if ctrl.Loading() {
		t.Error("loading should be false after the cycle resolves")
	}
	if ctrl.Err() != "" {
		t.Errorf("error slot = %q, want empty", ctrl.Err())
	}
}

func TestSend_TrimsContent(t *testing.T) {
	backend := &fakeExecutor{resp: &client.TaskResponse{Success: true, Response: "ok"}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "  Hello  \n")

	calls := backend.calls()
	if len(calls) != 1 {
		t.Fatalf("got %d backend calls, want 1", len(calls))
	}
	if calls[0].Task != "Hello" {
		t.Errorf("task = %q, want trimmed %q", calls[0].Task, "Hello")
	}
	if ctrl.Messages()[1].Content != "Hello" {
		t.Errorf("stored user turn = %q, want trimmed", ctrl.Messages()[1].Content)
	}
}

func TestSend_EmptyContentIgnored(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"newlines", "\n\t\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeExecutor{}
			ctrl := newTestController(backend)
			defer ctrl.Close()

			ctrl.Send(context.Background(), tt.content)

			if got := len(backend.calls()); got != 0 {
				t.Errorf("backend called %d times, want 0", got)
			}
			if got := len(ctrl.Messages()); got != 1 {
				t.Errorf("message count = %d, want 1 (greeting only)", got)
			}
			if ctrl.Err() != "" {
				t.Errorf("error slot = %q, want empty", ctrl.Err())
			}
		})
	}
}

func TestSend_BackendError(t *testing.T) {
	backend := &fakeExecutor{err: &client.BackendError{Message: "network down"}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "Hello")

	msgs := ctrl.Messages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3 (greeting, user, error turn)", len(msgs))
	}
	last := msgs[2]
	if !last.IsError {
		t.Error("final turn should be marked as error")
	}
	if last.Content != "Wystąpił błąd: network down" {
		t.Errorf("error turn content = %q", last.Content)
	}
	if ctrl.Err() != "network down" {
		t.Errorf("error slot = %q, want %q", ctrl.Err(), "network down")
	}
	if ctrl.Loading() {
		t.Error("loading should be false after failure")
	}
}

func TestSend_TransportError(t *testing.T) {
	backend := &fakeExecutor{err: errors.New("connection refused")}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "Hello")

	if ctrl.Err() != "connection refused" {
		t.Errorf("error slot = %q", ctrl.Err())
	}
	msgs := ctrl.Messages()
	if !msgs[len(msgs)-1].IsError {
		t.Error("expected synthesized error turn")
	}
}

func TestSend_EmptyResponseUsesFallback(t *testing.T) {
	backend := &fakeExecutor{resp: &client.TaskResponse{Success: true, Response: "  "}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "Hello")

	msgs := ctrl.Messages()
	if got := msgs[len(msgs)-1].Content; got != FallbackResponse {
		t.Errorf("assistant turn = %q, want fallback placeholder", got)
	}
}

func TestSend_ErrorSlotClearedOnNextCycle(t *testing.T) {
	backend := &fakeExecutor{err: errors.New("boom")}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "first")
	if ctrl.Err() != "boom" {
		t.Fatalf("error slot = %q, want boom", ctrl.Err())
	}

	backend.mu.Lock()
	backend.err = nil
	backend.resp = &client.TaskResponse{Success: true, Response: "fine"}
	backend.mu.Unlock()

	ctrl.Send(context.Background(), "second")
	if ctrl.Err() != "" {
		t.Errorf("error slot = %q after success, want empty", ctrl.Err())
	}
}

func TestSend_SnapshotsFlagsPerRequest(t *testing.T) {
	backend := &fakeExecutor{resp: &client.TaskResponse{Success: true, Response: "ok"}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	if got := ctrl.TogglePerplexity(); !got {
		t.Fatal("TogglePerplexity should flip false→true")
	}
	ctrl.Send(context.Background(), "szukaj promocji")

	// Toggling after the send must not change what was already sent.
	ctrl.TogglePerplexity()

	calls := backend.calls()
	if len(calls) != 1 {
		t.Fatalf("got %d calls", len(calls))
	}
	if !calls[0].UsePerplexity {
		t.Error("request should reflect usePerplexity=true")
	}
	if !calls[0].UseBielik {
		t.Error("useBielik should default to true")
	}
	if calls[0].AgentStates == nil || !calls[0].AgentStates.Search {
		t.Error("agent_states.search should follow the perplexity flag")
	}
}

func TestToggles_DoubleToggleRestores(t *testing.T) {
	ctrl := newTestController(&fakeExecutor{})
	defer ctrl.Close()

	before := ctrl.Options()
	ctrl.ToggleBielik()
	ctrl.ToggleBielik()
	ctrl.ToggleShopping()
	ctrl.ToggleShopping()
	ctrl.ToggleCooking()
	ctrl.ToggleCooking()

	if ctrl.Options() != before {
		t.Errorf("options = %+v, want %+v", ctrl.Options(), before)
	}
	if got := len(ctrl.Messages()); got != 1 {
		t.Errorf("toggles mutated the conversation: %d messages", got)
	}
}

func TestClear_ResetsConversationAndSession(t *testing.T) {
	backend := &fakeExecutor{resp: &client.TaskResponse{Success: true, Response: "ok"}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	oldSession := ctrl.SessionID()
	ctrl.Send(context.Background(), "Hello")

	ctrl.Clear()

	msgs := ctrl.Messages()
	if len(msgs) != 1 || msgs[0].Content != Greeting {
		t.Errorf("after Clear: %d messages, first %q", len(msgs), msgs[0].Content)
	}
	if ctrl.SessionID() == oldSession {
		t.Error("Clear must issue a new session id")
	}
	if ctrl.Err() != "" || ctrl.Loading() {
		t.Error("Clear must reset error slot and loading flag")
	}
}

func TestSend_WhileLoadingIgnored(t *testing.T) {
	backend := &fakeExecutor{
		resp:    &client.TaskResponse{Success: true, Response: "ok"},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Send(context.Background(), "slow one")
	}()
	<-backend.started

	if !ctrl.Loading() {
		t.Error("loading should be true while in flight")
	}
	ctrl.Send(context.Background(), "second")

	close(backend.block)
	<-done

	if got := len(backend.calls()); got != 1 {
		t.Errorf("backend called %d times, want 1 (second send skipped)", got)
	}
	// greeting + one user + one assistant
	if got := len(ctrl.Messages()); got != 3 {
		t.Errorf("message count = %d, want 3", got)
	}
}

func TestClose_CancelsInFlightSilently(t *testing.T) {
	backend := &fakeExecutor{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	defer close(backend.block)
	ctrl := newTestController(backend)

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Send(context.Background(), "Hello")
	}()
	<-backend.started

	ctrl.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not resolve after Close")
	}

	// Only greeting + user turn; no completion turn, no error.
	if got := len(ctrl.Messages()); got != 2 {
		t.Errorf("message count = %d, want 2 (user turn only, no completion)", got)
	}
	if ctrl.Err() != "" {
		t.Errorf("error slot = %q after cancellation, want empty", ctrl.Err())
	}
	if ctrl.Loading() {
		t.Error("loading should be false after Close")
	}
}

func TestClear_AbandonsInFlightSend(t *testing.T) {
	backend := &fakeExecutor{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	defer close(backend.block)
	ctrl := newTestController(backend)
	defer ctrl.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ctrl.Send(context.Background(), "Hello")
	}()
	<-backend.started

	ctrl.Clear()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not resolve after Clear")
	}

	// The cleared conversation must contain the greeting only; the stale
	// resolution must not append anything.
	if got := len(ctrl.Messages()); got != 1 {
		t.Errorf("message count = %d after Clear, want 1", got)
	}
	if ctrl.Err() != "" {
		t.Errorf("error slot = %q, want empty", ctrl.Err())
	}
}

func TestClose_Idempotent(t *testing.T) {
	ctrl := newTestController(&fakeExecutor{})
	ctrl.Close()
	ctrl.Close()

	ctrl.Send(context.Background(), "after close")
	if got := len(ctrl.Messages()); got != 1 {
		t.Errorf("send after Close mutated state: %d messages", got)
	}
}

func TestSend_MergesConversationState(t *testing.T) {
	backend := &fakeExecutor{resp: &client.TaskResponse{
		Success:           true,
		Response:          "ok",
		ConversationState: map[string]any{"topic": "zakupy"},
	}}
	ctrl := newTestController(backend)
	defer ctrl.Close()

	ctrl.Send(context.Background(), "first")
	ctrl.Send(context.Background(), "second")

	calls := backend.calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls", len(calls))
	}
	if calls[0].ConversationState != nil {
		t.Errorf("first request state = %v, want nil", calls[0].ConversationState)
	}
	if calls[1].ConversationState["topic"] != "zakupy" {
		t.Errorf("second request should carry merged state, got %v", calls[1].ConversationState)
	}
}
