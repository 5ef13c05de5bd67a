package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/foodsave-ai/foodsave/internal/log"
	"github.com/foodsave-ai/foodsave/internal/session"
)

// Pagination bounds for session listing.
const (
	defaultListLimit = 100
	maxListLimit     = 1000
	maxListOffset    = 100000
)

// SessionStore is the slice of the session store the HTTP layer needs.
type SessionStore interface {
	List(ctx context.Context, limit, offset int) ([]*session.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ClearHistory(ctx context.Context, id uuid.UUID) error
}

type sessionsHandler struct {
	store  SessionStore
	logger log.Logger
}

func newSessionsHandler(store SessionStore, logger log.Logger) *sessionsHandler {
	return &sessionsHandler{store: store, logger: logger}
}

func (h *sessionsHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	mux.HandleFunc("POST /api/sessions/{id}/clear", h.clear)
}

func (h *sessionsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultListLimit, 1, maxListLimit)
	offset := parseIntParam(r, "offset", 0, 0, maxListOffset)

	sessions, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed", "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    len(sessions),
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *sessionsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("deleting session", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clear wipes a session's history without deleting the session itself.
func (h *sessionsHandler) clear(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return
	}

	if err := h.store.ClearHistory(r.Context(), id); err != nil {
		h.logger.Error("clearing session history", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "clear_failed", "failed to clear session history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseIntParam parses an integer query parameter with bounds clamping.
func parseIntParam(r *http.Request, name string, defaultVal, minVal, maxVal int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
