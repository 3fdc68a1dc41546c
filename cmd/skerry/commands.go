// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/SkerryAI/SkerryChat/pkg/api"
	"github.com/SkerryAI/SkerryChat/pkg/chat"
	"github.com/SkerryAI/SkerryChat/pkg/config"
	"github.com/SkerryAI/SkerryChat/pkg/logging"
)

// --- Global Command Variables ---
var (
	apiURL   string // CLI override for backend.base_url
	logLevel string // CLI override for logging.level
	resumeID string // session to resume in chat

	cfg      config.SkerryConfig
	logger   *slog.Logger
	logClose func() error

	rootCmd = &cobra.Command{
		Use:   "skerry",
		Short: "A terminal chat client for the Skerry document answer service",
		Long: `Skerry chats with a retrieval-backed answer service over its
streaming API, with persisted sessions and cited sources.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if apiURL != "" {
				cfg.Backend.BaseURL = apiURL
			}
			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			logger, logClose = logging.New(logging.Config{
				Level:   level,
				LogDir:  cfg.Logging.Dir,
				Service: "cli",
			})
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logClose != nil {
				if err := logClose(); err != nil {
					fmt.Fprintln(os.Stderr, "warning:", err)
				}
			}
		},
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat backed by the knowledge base",
		RunE:  runChatCommand, // Defined in cmd_chat.go
	}

	// --- Sessions ---
	sessionsCmd = &cobra.Command{
		Use:   "sessions",
		Short: "Manage persisted chat sessions",
	}
	sessionsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all persisted sessions",
		RunE:  runSessionsList, // Defined in cmd_sessions.go
	}
	sessionsShowCmd = &cobra.Command{
		Use:   "show [session_id]",
		Short: "Show a session's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsShow, // Defined in cmd_sessions.go
	}
	sessionsDeleteCmd = &cobra.Command{
		Use:   "delete [session_id]",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionsDelete, // Defined in cmd_sessions.go
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "",
		"Backend base URL (overrides config and SKERRY_API_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")

	chatCmd.Flags().StringVar(&resumeID, "resume", "", "Resume an existing session by id")
	rootCmd.AddCommand(chatCmd)

	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}

// newStore builds the production store against the configured backend.
func newStore() *chat.Store {
	client := api.NewClient(api.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: time.Duration(cfg.Backend.RequestTimeoutSeconds) * time.Second,
		Logger:         logger,
	})
	return chat.NewStore(chat.StoreConfig{
		Backend: client,
		Logger:  logger,
	})
}
