package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/foodsave-ai/foodsave/internal/chat"
	"github.com/foodsave-ai/foodsave/internal/client"
	"github.com/foodsave-ai/foodsave/internal/config"
	"github.com/foodsave-ai/foodsave/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interaktywny czat z asystentem FoodSave",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// runChat starts the terminal chat surface against a running backend.
func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The TUI owns the terminal; keep logs out of it.
	logger := newLogger(false)

	backend := client.New(cfg.BackendURL, client.WithLogger(logger))
	controller := chat.NewController(backend, logger, chat.DefaultOptions())
	defer controller.Close()

	model, err := tui.New(ctx, controller)
	if err != nil {
		return fmt.Errorf("creating chat interface: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running chat interface: %w", err)
	}
	return nil
}
