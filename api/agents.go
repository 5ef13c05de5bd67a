package api

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/foodsave-ai/foodsave/internal/agent"
	"github.com/foodsave-ai/foodsave/internal/log"
)

// Processor is the slice of the orchestrator the agents endpoint needs.
type Processor interface {
	Process(ctx context.Context, cmd agent.Command) (*agent.Result, error)
}

// executePath keeps the doubled /agents/agents/ segment the deployed
// clients already call. Do not "fix" it.
const (
	executePath       = "/api/agents/agents/execute"
	executeStreamPath = "/api/agents/agents/execute/stream"
)

// agentStatesPayload mirrors the wire shape of agent_states.
type agentStatesPayload struct {
	Weather  bool `json:"weather"`
	Search   bool `json:"search"`
	Shopping bool `json:"shopping"`
	Cooking  bool `json:"cooking"`
}

// executeRequest is the task execution request. Field naming mixes
// snake_case and camelCase to stay wire-compatible with existing clients.
type executeRequest struct {
	Task              string              `json:"task"`
	SessionID         string              `json:"session_id"`
	ConversationState map[string]any      `json:"conversation_state,omitempty"`
	AgentStates       *agentStatesPayload `json:"agent_states,omitempty"`
	UsePerplexity     bool                `json:"usePerplexity"`
	// UseBielik defaults to true when absent, hence the pointer.
	UseBielik *bool `json:"useBielik,omitempty"`
}

// executeResponse is the task execution envelope.
type executeResponse struct {
	Success           bool           `json:"success"`
	Response          string         `json:"response,omitempty"`
	Error             string         `json:"error,omitempty"`
	Data              map[string]any `json:"data,omitempty"`
	SessionID         string         `json:"session_id"`
	ConversationState map[string]any `json:"conversation_state,omitempty"`
}

type agentsHandler struct {
	processor Processor
	logger    log.Logger
}

func newAgentsHandler(processor Processor, logger log.Logger) *agentsHandler {
	return &agentsHandler{processor: processor, logger: logger}
}

func (h *agentsHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+executePath, h.execute)
	mux.HandleFunc("POST "+executeStreamPath, h.executeStream)
}

// buildCommand validates the request and converts it to a Command.
func (h *agentsHandler) buildCommand(req executeRequest) (agent.Command, error) {
	task := strings.TrimSpace(req.Task)
	if task == "" {
		return agent.Command{}, fmt.Errorf("task is required")
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return agent.Command{}, fmt.Errorf("invalid session_id: %w", err)
	}

	states := agent.DefaultStates()
	if req.AgentStates != nil {
		states = agent.States{
			Weather:  req.AgentStates.Weather,
			Search:   req.AgentStates.Search,
			Shopping: req.AgentStates.Shopping,
			Cooking:  req.AgentStates.Cooking,
		}
	}

	useBielik := true
	if req.UseBielik != nil {
		useBielik = *req.UseBielik
	}

	return agent.Command{
		Task:              task,
		SessionID:         sessionID,
		States:            states,
		UsePerplexity:     req.UsePerplexity,
		UseBielik:         useBielik,
		ConversationState: req.ConversationState,
	}, nil
}

// mergedState overlays the orchestrator's state updates on the state the
// client sent, so the client can carry it into the next request.
func mergedState(req executeRequest, result *agent.Result) map[string]any {
	if len(req.ConversationState) == 0 && len(result.State) == 0 {
		return nil
	}
	merged := make(map[string]any, len(req.ConversationState)+len(result.State))
	maps.Copy(merged, req.ConversationState)
	maps.Copy(merged, result.State)
	return merged
}

// execute runs one task synchronously. Agent failures come back with
// success=false inside a 200 response; HTTP errors are reserved for
// malformed requests and infrastructure faults.
func (h *agentsHandler) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	cmd, err := h.buildCommand(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.processor.Process(r.Context(), cmd)
	if err != nil {
		h.logger.Error("processing task failed", "error", err, "session_id", req.SessionID)
		writeError(w, http.StatusInternalServerError, "processing_failed", "failed to process task")
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{
		Success:           result.Success,
		Response:          result.Text,
		Error:             result.ErrMessage,
		Data:              result.Data,
		SessionID:         req.SessionID,
		ConversationState: mergedState(req, result),
	})
}

// SSE event payloads, in the order a stream emits them.
type sseChunkData struct {
	Text string `json:"text"`
}

type sseDoneData struct {
	Response          string         `json:"response"`
	SessionID         string         `json:"session_id"`
	Data              map[string]any `json:"data,omitempty"`
	ConversationState map[string]any `json:"conversation_state,omitempty"`
}

type sseErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// executeStream runs one task and delivers the result as SSE events:
// chunk events with response text, then done, or error.
func (h *agentsHandler) executeStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSSE(w, flusher, "error", sseErrorData{Code: "invalid_request", Message: "invalid request body"})
		return
	}
	cmd, err := h.buildCommand(req)
	if err != nil {
		writeSSE(w, flusher, "error", sseErrorData{Code: "invalid_request", Message: err.Error()})
		return
	}

	result, err := h.processor.Process(r.Context(), cmd)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.Info("client disconnected", "session_id", req.SessionID)
			return
		}
		h.logger.Error("processing task failed", "error", err, "session_id", req.SessionID)
		writeSSE(w, flusher, "error", sseErrorData{Code: "processing_failed", Message: "failed to process task"})
		return
	}
	if !result.Success {
		writeSSE(w, flusher, "error", sseErrorData{Code: string(result.Agent), Message: result.Text})
		return
	}

	writeSSE(w, flusher, "chunk", sseChunkData{Text: result.Text})
	writeSSE(w, flusher, "done", sseDoneData{
		Response:          result.Text,
		SessionID:         req.SessionID,
		Data:              result.Data,
		ConversationState: mergedState(req, result),
	})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, _ := json.Marshal(payload)
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
