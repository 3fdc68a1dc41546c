// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SkerryAI/SkerryChat/pkg/ux"
)

// runSessionsList prints every persisted session.
func runSessionsList(cmd *cobra.Command, args []string) error {
	store := newStore()

	err := ux.WithSpinner("Loading sessions...", func() error {
		store.LoadSessions(cmd.Context())
		if snap := store.GetSnapshot(); snap.Error != nil {
			return fmt.Errorf("%s", snap.Error.Message)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	ux.RenderSessionList(os.Stdout, store.GetSnapshot().Sessions, "")
	return nil
}

// runSessionsShow prints a session's full conversation history.
func runSessionsShow(cmd *cobra.Command, args []string) error {
	id := args[0]
	store := newStore()

	store.SelectSession(cmd.Context(), id)
	snap := store.GetSnapshot()
	if snap.Error != nil {
		return fmt.Errorf("showing session %s: %s", id, snap.Error.Message)
	}

	ux.Title(fmt.Sprintf("Session %s", id))
	if snap.Model != "" {
		ux.Muted(fmt.Sprintf("%s via %s", snap.Model, snap.Provider))
	}
	fmt.Println()
	ux.RenderHistory(os.Stdout, snap.Messages)
	return nil
}

// runSessionsDelete removes a persisted session.
func runSessionsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	store := newStore()

	store.DeleteSession(cmd.Context(), id)
	if snap := store.GetSnapshot(); snap.Error != nil {
		return fmt.Errorf("deleting session %s: %s", id, snap.Error.Message)
	}

	ux.Success(fmt.Sprintf("Deleted session %s", id))
	return nil
}
