package client

import (
	"context"
	"fmt"
)

// agentsExecutePath is the orchestrator endpoint. The doubled segment is
// kept for compatibility with the original backend route.
const agentsExecutePath = "/api/agents/agents/execute"

// AgentStates declares which backend agent capabilities are active for a
// request. Zero value means "nothing explicitly enabled"; the backend then
// applies its own defaults.
type AgentStates struct {
	Weather  bool `json:"weather"`
	Search   bool `json:"search"`
	Shopping bool `json:"shopping"`
	Cooking  bool `json:"cooking"`
}

// TaskRequest is the payload for one orchestrator task execution.
//
// The mixed field naming (snake_case and camelCase) mirrors the backend
// contract exactly and must not be "fixed" on this side.
type TaskRequest struct {
	Task              string         `json:"task"`
	SessionID         string         `json:"session_id"`
	ConversationState map[string]any `json:"conversation_state,omitempty"`
	AgentStates       *AgentStates   `json:"agent_states,omitempty"`
	UsePerplexity     bool           `json:"usePerplexity"`
	UseBielik         bool           `json:"useBielik"`
}

// TaskResponse is the orchestrator's reply.
type TaskResponse struct {
	Success           bool           `json:"success"`
	Response          string         `json:"response,omitempty"`
	Error             string         `json:"error,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
	SessionID         string         `json:"session_id"`
	ConversationState map[string]any `json:"conversation_state,omitempty"`
}

// ExecuteTask sends one task to the orchestrator and returns the reply.
//
// The response is discriminated at this boundary: a payload with
// success=false (or a non-empty error field) is returned as a *BackendError
// instead of a TaskResponse, so callers never inspect half-valid payloads.
func (c *Client) ExecuteTask(ctx context.Context, req TaskRequest) (*TaskResponse, error) {
	var resp TaskResponse
	if err := c.postJSON(ctx, agentsExecutePath, req, &resp); err != nil {
		return nil, err
	}

	if !resp.Success || resp.Error != "" {
		msg := resp.Error
		if msg == "" {
			msg = fmt.Sprintf("backend reported failure for session %s", req.SessionID)
		}
		return nil, &BackendError{Message: msg}
	}
	return &resp, nil
}
