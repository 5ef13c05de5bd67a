package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const sessionsPath = "/api/sessions"

// Session is one chat session known to the backend.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sessions lists sessions, most recently active first.
func (c *Client) Sessions(ctx context.Context, limit, offset int) ([]Session, error) {
	path := fmt.Sprintf("%s?limit=%d&offset=%d", sessionsPath, limit, offset)
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// DeleteSession removes a session and its history.
func (c *Client) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return c.delete(ctx, sessionsPath+"/"+id.String())
}

// ClearSession wipes a session's history, keeping the session itself.
func (c *Client) ClearSession(ctx context.Context, id uuid.UUID) error {
	return c.postJSON(ctx, sessionsPath+"/"+id.String()+"/clear", struct{}{}, nil)
}
