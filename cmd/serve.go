package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foodsave-ai/foodsave/api"
	"github.com/foodsave-ai/foodsave/internal/app"
	"github.com/foodsave-ai/foodsave/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Uruchom backend HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and runs the HTTP server until
// SIGINT or SIGTERM.
func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(true)
	logger.Info("starting FoodSave backend", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	server, err := api.NewServer(api.Config{
		Pool:           a.Pool,
		Processor:      a.Orchestrator,
		Sessions:       a.Sessions,
		Pantry:         a.Pantry,
		Weather:        a.Weather,
		Receipts:       a.Receipts,
		Logger:         logger,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return server.Run(ctx, cfg.ServerAddr)
}
