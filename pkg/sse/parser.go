// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// Parser
// =============================================================================

// Parser classifies SSE lines and interprets JSON payloads into Events.
//
// A Parser carries per-stream state: the identifier from the most recent
// `id:` line and the label from the most recent `event:` line. Both are
// attached to the next emitted Event. A blank line terminates the current
// payload and resets the label; the identifier persists as the stream's
// last-seen identifier until the next `id:` line replaces it.
//
// Line classification, in priority order:
//
//  1. `id:` prefix: event identifier, trimmed and recorded.
//  2. `event:` prefix: kind label, recorded but not itself actionable.
//  3. `data:` prefix: JSON payload; empty payloads are ignored and
//     malformed JSON is dropped (reported via the returned error so the
//     caller can log it) without ever aborting the stream.
//
// Lines matching none of the above are ignored.
//
// A Parser is not safe for concurrent use; use one Parser per stream.
type Parser struct {
	lastEventID string
	label       string
}

// NewParser creates a parser for a single event stream.
func NewParser() *Parser {
	return &Parser{}
}

// LastEventID returns the identifier from the most recent `id:` line, or
// the empty string if the stream has not carried one yet.
func (p *Parser) LastEventID() string {
	return p.lastEventID
}

// ParseLine consumes one logical line from the stream.
//
// Returns:
//   - (*Event, nil): a data line whose payload matched a known shape.
//   - (nil, nil): structural lines (id/event/blank), ignorable lines, empty
//     payloads, and payloads matching no known shape.
//   - (nil, error): a data line whose payload was not valid JSON. The line
//     is dropped; the parser remains usable and the caller must not treat
//     this as fatal.
func (p *Parser) ParseLine(line string) (*Event, error) {
	line = strings.TrimRight(line, "\r")

	// Blank line: payload terminator. The kind label does not outlive the
	// event it annotated.
	if strings.TrimSpace(line) == "" {
		p.label = ""
		return nil, nil
	}

	if rest, ok := cutPrefix(line, "id:"); ok {
		p.lastEventID = strings.TrimSpace(rest)
		return nil, nil
	}

	if rest, ok := cutPrefix(line, "event:"); ok {
		p.label = strings.TrimSpace(rest)
		return nil, nil
	}

	if rest, ok := cutPrefix(line, "data:"); ok {
		payload := strings.TrimSpace(rest)
		if payload == "" {
			return nil, nil
		}
		event, err := p.interpret([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("drop malformed payload: %w", err)
		}
		return event, nil
	}

	// Comments and anything else the protocol does not define.
	return nil, nil
}

// cutPrefix matches an SSE field prefix with or without the optional space
// after the colon ("data: {...}" and "data:{...}" are both valid).
func cutPrefix(line, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(line, prefix)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(rest, " "), true
}

// =============================================================================
// Shape dispatch
// =============================================================================

// rawPayload mirrors every field any event shape can carry. Pointer fields
// distinguish "absent" from "zero", which is what the shape dispatch keys on.
type rawPayload struct {
	TraceID   *string       `json:"trace_id"`
	Model     *string       `json:"model"`
	Provider  *string       `json:"provider"`
	SessionID *string       `json:"session_id"`
	Sources   *[]SourceInfo `json:"sources"`
	Text      *string       `json:"text"`
	Response  *string       `json:"response"`
	Code      *string       `json:"code"`
	Message   *string       `json:"message"`
	Retryable *bool         `json:"retryable"`
}

// interpret maps a JSON payload onto an Event by field shape.
//
// The precedence order below is authoritative; first match wins. Payloads
// matching no shape produce (nil, nil) and are ignored by the caller.
func (p *Parser) interpret(payload []byte) (*Event, error) {
	var raw rawPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}

	event := &Event{
		ID:    p.lastEventID,
		Label: p.label,
	}

	switch {
	case raw.TraceID != nil && raw.Model != nil && raw.Provider != nil && raw.Response == nil:
		event.Kind = EventMeta
		event.TraceID = *raw.TraceID
		event.Model = *raw.Model
		event.Provider = *raw.Provider
		if raw.SessionID != nil {
			event.SessionID = *raw.SessionID
		}

	case raw.Sources != nil && raw.Response == nil:
		event.Kind = EventSources
		event.Sources = *raw.Sources

	case raw.Text != nil:
		event.Kind = EventChunk
		event.Text = *raw.Text

	case raw.Response != nil && raw.Sources != nil:
		event.Kind = EventDone
		event.Response = *raw.Response
		event.Sources = *raw.Sources
		if raw.Model != nil {
			event.Model = *raw.Model
		}
		if raw.Provider != nil {
			event.Provider = *raw.Provider
		}

	case raw.Code != nil && raw.Message != nil:
		event.Kind = EventError
		event.Code = *raw.Code
		event.Message = *raw.Message
		if raw.TraceID != nil {
			event.TraceID = *raw.TraceID
		}
		if raw.Retryable != nil {
			event.Retryable = *raw.Retryable
		}

	default:
		return nil, nil
	}

	return event, nil
}
