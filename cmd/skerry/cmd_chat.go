// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/SkerryAI/SkerryChat/pkg/chat"
	"github.com/SkerryAI/SkerryChat/pkg/ux"
)

const inputHistorySize = 100

// runChatCommand runs the interactive chat loop: read a line, send it,
// and let the snapshot renderer paint the streamed answer. Slash
// commands manage sessions without leaving the loop.
func runChatCommand(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store := newStore()
	renderer := ux.NewSnapshotRenderer(os.Stdout)
	unsubscribe := store.Subscribe(func() {
		renderer.Observe(store.GetSnapshot())
	})
	defer unsubscribe()
	defer renderer.Finalize()

	// First Ctrl+C stops the in-flight answer, second one exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		store.CancelStream()
		<-sigCh
		cancel()
	}()

	if resumeID != "" {
		store.SelectSession(ctx, resumeID)
		snap := store.GetSnapshot()
		if snap.Error != nil {
			return fmt.Errorf("resuming session %s: %s", resumeID, snap.Error.Message)
		}
		ux.Info(fmt.Sprintf("Resumed session %s (%d messages)", resumeID, len(snap.Messages)))
		ux.RenderHistory(os.Stdout, snap.Messages)
	}

	ux.Title("Skerry Chat")
	ux.Muted("Type a question, /help for commands, /exit to quit.")
	fmt.Println()

	reader := NewInteractiveInputReader(inputHistorySize)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := reader.ReadLine()
		if err == io.EOF {
			fmt.Println()
			ux.Muted("Goodbye.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := handleSlashCommand(ctx, store, line); done {
				return nil
			}
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit":
			ux.Muted("Goodbye.")
			return nil
		}

		// Blocks until the turn resolves; the subscriber paints progress.
		store.SendMessage(ctx, line)
		fmt.Println()
	}
}

// handleSlashCommand dispatches in-loop commands. Returns true when the
// loop should exit.
func handleSlashCommand(ctx context.Context, store *chat.Store, line string) bool {
	fields := strings.Fields(line)
	command, rest := fields[0], fields[1:]

	switch command {
	case "/exit", "/quit":
		ux.Muted("Goodbye.")
		return true

	case "/help":
		ux.Box("Commands", strings.Join([]string{
			"/new              start a fresh conversation",
			"/sessions         list persisted sessions",
			"/resume <id>      switch to a persisted session",
			"/delete <id>      delete a persisted session",
			"/clear            clear visible messages, keep the session",
			"/exit             quit",
		}, "\n"))

	case "/new":
		store.StartNewSession()
		ux.Info("Started a new conversation.")

	case "/clear":
		store.ClearMessages()
		ux.Info("Cleared messages.")

	case "/sessions":
		store.LoadSessions(ctx)
		snap := store.GetSnapshot()
		if snap.Error != nil {
			ux.Error(snap.Error.Message)
			store.ClearError()
			break
		}
		ux.RenderSessionList(os.Stdout, snap.Sessions, snap.CurrentSessionID)

	case "/resume":
		if len(rest) != 1 {
			ux.Warning("Usage: /resume <session_id>")
			break
		}
		store.SelectSession(ctx, rest[0])
		snap := store.GetSnapshot()
		if snap.Error != nil {
			ux.Error(snap.Error.Message)
			store.ClearError()
			break
		}
		ux.Info(fmt.Sprintf("Resumed session %s (%d messages)", rest[0], len(snap.Messages)))
		ux.RenderHistory(os.Stdout, snap.Messages)

	case "/delete":
		if len(rest) != 1 {
			ux.Warning("Usage: /delete <session_id>")
			break
		}
		store.DeleteSession(ctx, rest[0])
		snap := store.GetSnapshot()
		if snap.Error != nil {
			ux.Error(snap.Error.Message)
			store.ClearError()
			break
		}
		ux.Success(fmt.Sprintf("Deleted session %s", rest[0]))

	default:
		ux.Warning(fmt.Sprintf("Unknown command %s (try /help)", command))
	}
	return false
}
