package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foodsave-ai/foodsave/internal/config"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Pokaż wersję i konfigurację",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) error {
	fmt.Printf("FoodSave %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		// Version info is still useful without a valid config.
		fmt.Printf("\nConfiguration: unavailable (%v)\n", err)
		return nil
	}

	fmt.Println("\nConfiguration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.FullModelName())
	fmt.Printf("  Bielik: %s\n", cfg.FullBielikModelName())
	fmt.Printf("  Backend: %s\n", cfg.BackendURL)
	fmt.Printf("  Database: %s@%s:%d/%s\n",
		cfg.PostgresUser, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDBName)
	return nil
}
