//go:build integration

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/foodsave-ai/foodsave/internal/log"
	"github.com/foodsave-ai/foodsave/internal/testutil"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	store, err := NewStore(db.Pool, log.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestEnsureSessionIdempotent(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.EnsureSession(ctx, id, "pierwsza rozmowa"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	// Second call with a different title must not overwrite.
	if err := store.EnsureSession(ctx, id, "inny tytuł"); err != nil {
		t.Fatalf("EnsureSession again: %v", err)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.Title != "pierwsza rozmowa" {
		t.Errorf("title = %q, want the original", sess.Title)
	}
}

func TestAppendAndLoadHistory(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.EnsureSession(ctx, id, "test"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}

	first := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("Cześć")),
		ai.NewModelMessage(ai.NewTextPart("Cześć! W czym pomóc?")),
	}
	if err := store.AppendMessages(ctx, id, first); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	second := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("Co na obiad?")),
		ai.NewModelMessage(ai.NewTextPart("Może pierogi.")),
	}
	if err := store.AppendMessages(ctx, id, second); err != nil {
		t.Fatalf("AppendMessages second batch: %v", err)
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	if history[0].Role != ai.RoleUser || history[0].Content[0].Text != "Cześć" {
		t.Errorf("first message = %v %q", history[0].Role, history[0].Content[0].Text)
	}
	if history[3].Role != ai.RoleModel || history[3].Content[0].Text != "Może pierogi." {
		t.Errorf("last message = %v %q", history[3].Role, history[3].Content[0].Text)
	}

	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sess.MessageCount != 4 {
		t.Errorf("message_count = %d, want 4", sess.MessageCount)
	}
}

func TestAppendToMissingSession(t *testing.T) {
	store := newIntegrationStore(t)

	err := store.AppendMessages(context.Background(), uuid.New(), []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hej")),
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestClearHistoryKeepsSession(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := store.EnsureSession(ctx, id, "test"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if err := store.AppendMessages(ctx, id, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hej")),
	}); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	if err := store.ClearHistory(ctx, id); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}

	history, err := store.History(ctx, id)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("session should survive ClearHistory: %v", err)
	}
	if sess.MessageCount != 0 {
		t.Errorf("message_count = %d, want 0", sess.MessageCount)
	}
}

func TestListAndDeleteSessions(t *testing.T) {
	store := newIntegrationStore(t)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	if err := store.EnsureSession(ctx, first, "starsza"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	if err := store.EnsureSession(ctx, second, "nowsza"); err != nil {
		t.Fatalf("EnsureSession: %v", err)
	}
	// Touch the second session so it sorts first.
	if err := store.AppendMessages(ctx, second, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hej")),
	}); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}

	sessions, err := store.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("listed %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != second {
		t.Errorf("most recently active session should list first")
	}

	if err := store.Delete(ctx, first); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, first); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrSessionNotFound", err)
	}
	if err := store.Delete(ctx, first); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double delete: err = %v, want ErrSessionNotFound", err)
	}
}
