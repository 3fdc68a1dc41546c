// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package chat implements the streaming session core: the conversation
// store that turns the backend's event stream into a consistent,
// observable conversation state, plus session lifecycle and cancellation.
//
// The store is the orchestrator; pkg/sse supplies parsed stream events and
// a Backend implementation (pkg/api) supplies the REST collaborators.
// Consumers read state exclusively through Snapshot and are told about
// changes through Subscribe.
package chat

import (
	"time"

	"github.com/SkerryAI/SkerryChat/pkg/sse"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the conversation history.
//
// Messages are immutable once appended; the history is append-only and is
// never reordered or mutated in place. A user message is created when text
// is submitted, an assistant message when a generation completes.
type ChatMessage struct {
	ID        string
	Role      Role
	Content   string
	Sources   []sse.SourceInfo
	Model     string
	Provider  string
	Timestamp time.Time
}

// SessionSummary describes one persisted conversation thread.
//
// The backend owns sessions; the client reads them and only changes them
// through session-create/select calls. Title is nullable and stays nil
// when the backend has not assigned one; no placeholder is substituted at
// this layer.
type SessionSummary struct {
	ID        string
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Error codes the store itself produces. Backend-reported codes (for
// example RETRIEVAL_FAILED) pass through verbatim and are not remapped.
const (
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeLoadSessions  = "LOAD_SESSIONS_ERROR"
	ErrCodeSelectSession = "SELECT_SESSION_ERROR"
	ErrCodeDeleteSession = "DELETE_SESSION_ERROR"
)

// ChatError is the structured error surfaced on the snapshot.
//
// TraceID and Retryable are populated only for backend-reported stream
// errors, which carry them on the wire.
type ChatError struct {
	Code      string
	Message   string
	TraceID   string
	Retryable bool
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	return e.Code + ": " + e.Message
}
