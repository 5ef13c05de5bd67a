// Package session persists chat sessions and their message history in
// PostgreSQL. One session row per chat surface session id; messages are
// append-only with a per-session sequence number.
//
// Store is safe for concurrent use.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// Sentinel errors, checked with errors.Is.
var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// DefaultHistoryLimit caps how many messages History loads.
const DefaultHistoryLimit = 200

// Session is one chat session.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists sessions and messages.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a session store backed by the given pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) (*Store, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Store{pool: pool, logger: logger}, nil
}

// EnsureSession creates the session row if it does not exist. The title
// is only written on first creation.
func (s *Store) EnsureSession(ctx context.Context, id uuid.UUID, title string) error {
	const q = `
		INSERT INTO sessions (id, title)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, q, id, title)
	if err != nil {
		return fmt.Errorf("ensuring session %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		s.logger.Debug("session created", "session_id", id, "title", title)
	}
	return nil
}

// Get returns one session.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	const q = `
		SELECT id, title, message_count, created_at, updated_at
		FROM sessions
		WHERE id = $1`

	var sess Session
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&sess.ID, &sess.Title, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns sessions ordered by last activity, newest first.
func (s *Store) List(ctx context.Context, limit, offset int) ([]*Session, error) {
	const q = `
		SELECT id, title, message_count, created_at, updated_at
		FROM sessions
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.MessageCount,
			&sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and, via cascade, its messages.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	s.logger.Debug("session deleted", "session_id", id)
	return nil
}

// ClearHistory removes all messages of a session but keeps the session
// row, matching the chat surface's "new conversation, same pantry" reset.
func (s *Store) ClearHistory(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("clearing history for %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET message_count = 0, updated_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("resetting session %s: %w", id, err)
	}
	return tx.Commit(ctx)
}

// History returns the session's messages as genkit messages, oldest
// first, capped at DefaultHistoryLimit most recent.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]*ai.Message, error) {
	const q = `
		SELECT role, content
		FROM (
			SELECT role, content, sequence_number
			FROM messages
			WHERE session_id = $1
			ORDER BY sequence_number DESC
			LIMIT $2
		) recent
		ORDER BY sequence_number ASC`

	rows, err := s.pool.Query(ctx, q, id, DefaultHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", id, err)
	}
	defer rows.Close()

	var msgs []*ai.Message
	for rows.Next() {
		var (
			role    string
			content []byte
		)
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		var parts []*ai.Part
		if err := json.Unmarshal(content, &parts); err != nil {
			// A malformed row degrades the context, not the whole load.
			s.logger.Warn("skipping unreadable message",
				"session_id", id, "error", err)
			continue
		}
		msgs = append(msgs, &ai.Message{Role: ai.Role(role), Content: parts})
	}
	return msgs, rows.Err()
}

// AppendMessages appends messages to the session inside one transaction.
// The session row is locked for the duration so concurrent appends cannot
// race on sequence numbers.
func (s *Store) AppendMessages(ctx context.Context, id uuid.UUID, msgs []*ai.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locked uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return fmt.Errorf("locking session %s: %w", id, err)
	}

	var maxSeq int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM messages WHERE session_id = $1`,
		id).Scan(&maxSeq); err != nil {
		return fmt.Errorf("reading sequence for %s: %w", id, err)
	}

	for i, msg := range msgs {
		content, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshaling message %d: %w", i, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (session_id, role, content, sequence_number)
			VALUES ($1, $2, $3, $4)`,
			id, string(msg.Role), content, maxSeq+i+1); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sessions
		SET message_count = $2, updated_at = now()
		WHERE id = $1`,
		id, maxSeq+len(msgs)); err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append for %s: %w", id, err)
	}
	s.logger.Debug("messages appended", "session_id", id, "count", len(msgs))
	return nil
}
