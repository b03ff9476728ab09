// Package main is the entry point for the yatube server and its admin
// commands.
//
// COMMANDS:
//
//	yatube serve                      run the HTTP server (default)
//	yatube flush-cache --token T      drop the cached global timeline
//	yatube group create --slug cats --title "Cats"
//	yatube group list
//	yatube group delete cats
//	yatube hash-token T               print the bcrypt hash for admin_token_hash
//
// Every command reads the same configuration (see internal/config): an
// optional --config file, .env, then YATUBE_* environment variables.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/yatube/internal/config"
	"github.com/sakif/yatube/internal/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "yatube",
		Short:         "A small blogging platform: posts, groups, comments and follows",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (YAML, TOML or JSON)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(configFile)
			},
		},
		newFlushCacheCommand(&configFile),
		newGroupCommand(&configFile),
		newHashTokenCommand(),
	)
	return root
}

// loadConfig loads and validates the configuration and builds the logger
// it asks for.
func loadConfig(configFile string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate has already checked log_level.
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	return cfg, logger, nil
}

func runServe(configFile string) error {
	cfg, logger, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	if !cfg.GitHubEnabled() {
		logger.Warn("GitHub OAuth is not configured; /auth/login/ will answer 503")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		return err
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		return err
	}
	return nil
}
