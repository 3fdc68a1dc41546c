// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

// ConnStatus is the lifecycle phase of one network stream attempt.
type ConnStatus string

const (
	StatusDisconnected ConnStatus = "disconnected"
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
)

// ConnectionState models the lifecycle of one stream attempt together with
// the last acknowledged event identifier of that attempt.
//
// ConnectionState has pure value semantics: every transition returns a new
// value derived from the current one, and the zero value is the initial
// state (disconnected, no last event id). There is no terminal state; the
// same value chain is reused across many stream attempts. The error-abort
// path jumps straight to disconnected from either live state.
type ConnectionState struct {
	status      ConnStatus
	lastEventID string
}

// Status returns the lifecycle phase. The zero value reports
// StatusDisconnected.
func (c ConnectionState) Status() ConnStatus {
	if c.status == "" {
		return StatusDisconnected
	}
	return c.status
}

// LastEventID returns the last acknowledged event identifier for this
// stream attempt, or the empty string before any event was acknowledged.
func (c ConnectionState) LastEventID() string {
	return c.lastEventID
}

// Connecting returns a copy in the connecting phase.
func (c ConnectionState) Connecting() ConnectionState {
	c.status = StatusConnecting
	return c
}

// Connected returns a copy in the connected phase.
func (c ConnectionState) Connected() ConnectionState {
	c.status = StatusConnected
	return c
}

// Disconnected returns a copy in the disconnected phase.
func (c ConnectionState) Disconnected() ConnectionState {
	c.status = StatusDisconnected
	return c
}

// WithLastEventID returns a copy acknowledging the given event identifier.
func (c ConnectionState) WithLastEventID(id string) ConnectionState {
	c.lastEventID = id
	return c
}
