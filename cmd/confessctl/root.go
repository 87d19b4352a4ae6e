package main

import (
	"fmt"
	"time"

	"secretheart/internal/client"
	"secretheart/internal/config"
	"secretheart/internal/middleware"

	"github.com/spf13/cobra"
)

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

func newRootCmd() *cobra.Command {
	var baseURL string

	root := &cobra.Command{
		Use:   "confessctl",
		Short: "Manage and browse Secret Heart confessions.",
		Long: `confessctl migrates and seeds the confessions store and talks to a
running API server.

Examples:
  confessctl migrate up
  confessctl seed --count 25
  confessctl post "I still sleep with a night light"
  confessctl wall --live`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if baseURL != "" {
				loaded.APIBaseURL = baseURL
			}
			cfg = loaded
			middleware.Logger = middleware.NewLogger(cfg.Env)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "api", "", "API base URL (overrides API_BASE_URL)")

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newListCmd(),
		newPostCmd(),
		newLikeCmd(),
		newWallCmd(),
	)
	return root
}

func apiClient() (*client.Client, error) {
	timeout := time.Duration(cfg.ClientTimeoutSeconds) * time.Second
	return client.New(cfg.APIBaseURL, timeout)
}
