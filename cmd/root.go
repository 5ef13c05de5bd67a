// Package cmd provides the FoodSave CLI commands.
//
// Commands:
//   - chat (default): interactive terminal chat against a running backend
//   - serve: the HTTP API backend
//   - sessions: list and manage stored chat sessions
//   - version: build and configuration info
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foodsave-ai/foodsave/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "foodsave",
	Short: "FoodSave - asystent spiżarni i ograniczania marnowania żywności",
	Long: `FoodSave pomaga zarządzać spiżarnią, planować posiłki i zakupy
oraz analizować paragony, żeby mniej żywności lądowało w koszu.

Uruchomienie bez argumentów otwiera interaktywny czat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG=1 raises verbosity; serve
// mode logs JSON for log collectors, interactive modes log text.
func newLogger(json bool) log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: json})
}
