// Package app assembles the backend: configuration, tracing, database,
// Genkit, the domain agents and the orchestrator. Entry points call
// Setup once and read the fields they need.
package app

import (
	"context"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodsave-ai/foodsave/internal/agent"
	"github.com/foodsave-ai/foodsave/internal/config"
	"github.com/foodsave-ai/foodsave/internal/log"
	"github.com/foodsave-ai/foodsave/internal/pantry"
	"github.com/foodsave-ai/foodsave/internal/session"
)

// otelShutdownTimeout bounds the final span flush during Close.
const otelShutdownTimeout = 5 * time.Second

// App is the assembled backend.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	Pool   *pgxpool.Pool

	Sessions *session.Store
	Pantry   *pantry.Store

	// Orchestrator routes tasks to the agents below. Weather and
	// Receipts are also exposed directly for their HTTP endpoints.
	Orchestrator *agent.Orchestrator
	Weather      *agent.Weather
	Receipts     *agent.Receipt

	otelShutdown func(context.Context) error
}

// Close releases all resources in reverse setup order. Safe to call
// after a partially failed Setup.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Pool != nil {
		a.Pool.Close()
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}
