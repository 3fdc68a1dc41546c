// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sse consumes the server-sent event stream produced by the RAG
// chat backend and turns raw bytes into typed stream events.
//
// The package is split along two responsibilities:
//
//   - Reader (reader.go): reassembles logical lines from arbitrarily
//     chunked byte fragments and drives the per-line parse loop.
//   - Parser (parser.go): classifies each line (id/event/data) and maps a
//     JSON payload onto an Event by the shape of its fields.
//
// Neither component performs rendering or owns conversation state; those
// concerns live in pkg/chat.
package sse

// EventKind identifies the semantic type of a stream event.
//
// Kinds are derived from the shape of the JSON payload, not from the
// `event:` label the server sends. The label is redundant with the payload
// shape in this protocol and is kept only as a hint (Event.Label), which
// makes the client robust to a mislabeled or omitted kind field.
type EventKind string

const (
	// EventMeta carries the model/provider labels for the in-progress turn.
	EventMeta EventKind = "meta"
	// EventSources replaces the turn's provisional source list.
	EventSources EventKind = "sources"
	// EventChunk appends text to the in-progress partial answer.
	EventChunk EventKind = "chunk"
	// EventDone finalizes the turn with the full response and sources.
	EventDone EventKind = "done"
	// EventError reports a structured backend error and ends the turn.
	EventError EventKind = "error"
)

// SourceInfo is one retrieved-document citation.
//
// Produced only by the backend; the client never constructs these. Page,
// slide and sheet are populated depending on the source document type
// (PDF, presentation, spreadsheet) and stay nil otherwise.
type SourceInfo struct {
	Filename string  `json:"filename"`
	Page     *int    `json:"page,omitempty"`
	Slide    *int    `json:"slide,omitempty"`
	Sheet    *string `json:"sheet,omitempty"`
	Score    float64 `json:"score"`
}

// Event is one fully assembled stream event.
//
// Exactly the fields relevant to the event's Kind are populated; the rest
// stay at their zero values. ID is the identifier from the most recent
// `id:` line and Label the most recent `event:` line, both of which may be
// empty when the server omits them.
type Event struct {
	ID    string
	Label string
	Kind  EventKind

	// Meta fields.
	TraceID  string
	Model    string
	Provider string
	// SessionID is sent on meta events as a hint; the store treats its own
	// session identifier as authoritative.
	SessionID string

	// Sources carries citations for both sources and done events.
	Sources []SourceInfo

	// Text is the incremental answer fragment of a chunk event.
	Text string

	// Response is the complete answer of a done event.
	Response string

	// Error fields, passed through from the backend unmodified.
	Code      string
	Message   string
	Retryable bool
}

// IsTerminal reports whether the event ends the current turn.
func (e *Event) IsTerminal() bool {
	return e.Kind == EventDone || e.Kind == EventError
}
