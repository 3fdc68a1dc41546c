// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import "github.com/SkerryAI/SkerryChat/pkg/sse"

// Snapshot is a read-only structural copy of the store's state.
//
// Two consecutive Snapshot reads return the identical pointer if and only
// if no mutating operation ran in between; consumers may therefore use
// pointer comparison for change detection. The snapshot must be treated as
// immutable; the store offers no contract for writes through it.
type Snapshot struct {
	// Messages is the append-only conversation history.
	Messages []ChatMessage

	// PartialAnswer is the in-progress assistant text of the current turn,
	// empty when no generation is streaming.
	PartialAnswer string

	// Sources is the current turn's provisional citation list, replaced
	// whenever a sources event arrives and cleared when the turn ends.
	Sources []sse.SourceInfo

	// Error is the most recent operation failure, nil when healthy.
	Error *ChatError

	// Model and Provider label the generation backend for the displayed
	// conversation.
	Model    string
	Provider string

	// Sessions is the session list exactly as the backend returned it.
	Sessions []SessionSummary

	// CurrentSessionID is the persisted thread messages are appended to,
	// empty until a session is created or selected.
	CurrentSessionID string

	IsStreaming       bool
	IsLoadingSessions bool

	Connection ConnectionState
}

// buildSnapshot assembles a structural copy of the store fields. Callers
// must hold s.mu.
func (s *Store) buildSnapshot() *Snapshot {
	snap := &Snapshot{
		PartialAnswer:     s.partial.String(),
		Error:             s.errState,
		Model:             s.model,
		Provider:          s.provider,
		CurrentSessionID:  s.sessionID,
		IsStreaming:       s.streaming,
		IsLoadingSessions: s.loadingSessions,
		Connection:        s.conn,
	}
	if len(s.messages) > 0 {
		snap.Messages = append([]ChatMessage(nil), s.messages...)
	}
	if len(s.sources) > 0 {
		snap.Sources = append([]sse.SourceInfo(nil), s.sources...)
	}
	if len(s.sessions) > 0 {
		snap.Sessions = append([]SessionSummary(nil), s.sessions...)
	}
	return snap
}
