// Package api exposes the FoodSave backend over HTTP.
//
// Endpoints:
//
//	GET  /health                          liveness probe
//	GET  /ready                           readiness probe (pings PostgreSQL)
//	POST /api/agents/agents/execute       run one task through the orchestrator
//	POST /api/agents/agents/execute/stream  same, as an SSE stream
//	GET  /api/sessions                    list sessions
//	DELETE /api/sessions/{id}             delete a session
//	GET/POST /api/pantry/products         pantry listing and creation
//	PUT/DELETE /api/pantry/products/{id}  pantry updates
//	GET  /api/pantry/products/expiring    products expiring soon
//	POST /api/v2/receipts/upload          receipt image upload and analysis
//	GET  /api/weather                     current conditions per location
//
// File structure mirrors the endpoints: one handler file per resource,
// middleware.go for the chain, response.go for JSON helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodsave-ai/foodsave/internal/log"
)

// Server timeouts and defaults.
const (
	DefaultAddr = ":8000"

	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	WriteTimeout      = 120 * time.Second
	IdleTimeout       = 120 * time.Second
)

// Config carries the server's dependencies.
type Config struct {
	Pool        *pgxpool.Pool
	Processor   Processor
	Sessions    SessionStore
	Pantry      PantryStore
	Weather     WeatherService
	Receipts    ReceiptAnalyzer
	Logger      log.Logger
	CORSOrigins []string

	// RateLimitRPS and RateLimitBurst bound requests per client IP.
	// Zero RPS disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server is the FoodSave HTTP API server.
type Server struct {
	mux     *http.ServeMux
	logger  log.Logger
	cors    []string
	limiter *ipLimiter
}

// NewServer creates the server with all routes registered. Pool,
// Processor and Logger are required; nil optional dependencies leave
// their routes unregistered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mux := http.NewServeMux()

	newHealthHandler(cfg.Pool, cfg.Logger).registerRoutes(mux)
	newAgentsHandler(cfg.Processor, cfg.Logger).registerRoutes(mux)
	if cfg.Sessions != nil {
		newSessionsHandler(cfg.Sessions, cfg.Logger).registerRoutes(mux)
	}
	if cfg.Pantry != nil {
		newPantryHandler(cfg.Pantry, cfg.Logger).registerRoutes(mux)
	}
	if cfg.Weather != nil {
		newWeatherHandler(cfg.Weather, cfg.Logger).registerRoutes(mux)
	}
	if cfg.Receipts != nil {
		newReceiptsHandler(cfg.Receipts, cfg.Logger).registerRoutes(mux)
	}

	var limiter *ipLimiter
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS)
		}
		limiter = newIPLimiter(cfg.RateLimitRPS, burst)
	}

	return &Server{mux: mux, logger: cfg.Logger, cors: cfg.CORSOrigins, limiter: limiter}, nil
}

// Handler returns the full handler chain: recovery, logging, rate
// limiting, CORS.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.limiter, s.logger),
		corsMiddleware(s.cors),
	)
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
