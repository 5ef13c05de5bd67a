package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodsave-ai/foodsave/internal/log"
)

type healthHandler struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

func newHealthHandler(pool *pgxpool.Pool, logger log.Logger) *healthHandler {
	return &healthHandler{pool: pool, logger: logger}
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

func (h *healthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness pings the database; the process serves traffic only once its
// dependencies answer.
func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		http.Error(w, "database pool not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
