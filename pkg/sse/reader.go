// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
)

// readBufferSize is the per-Read chunk size. Event payloads routinely
// exceed a single chunk; the carry-over buffer grows as needed.
const readBufferSize = 4096

// Callback receives each interpreted event in arrival order. Returning an
// error stops the read loop and propagates the error to the caller.
type Callback func(Event) error

// =============================================================================
// Reader
// =============================================================================

// Reader demultiplexes a raw byte stream into Events.
//
// Bytes arrive in fragments split at arbitrary boundaries, including inside
// a line's prefix token or mid-payload. Reader maintains a carry-over
// buffer of the trailing not-yet-terminated segment, so the reconstructed
// line sequence is identical for every fragmentation of the same bytes. If
// the stream ends without a trailing newline, the remaining carry-over is
// still flushed as a final line.
//
// Malformed payload lines are logged and skipped; a single corrupt event
// never aborts the stream.
type Reader struct {
	parser *Parser
	logger *slog.Logger
}

// NewReader creates a Reader around parser. A nil logger falls back to
// slog.Default().
func NewReader(parser *Parser, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{parser: parser, logger: logger}
}

// Read consumes r until exhaustion, cancellation, or a terminal event,
// invoking callback for each event in arrival order.
//
// Returns nil on benign stream end (EOF or a done/error event), the
// context's error on cancellation, the callback's error if it stopped the
// loop, and the transport error otherwise.
func (d *Reader) Read(ctx context.Context, r io.Reader, callback Callback) error {
	var carry []byte
	buf := make([]byte, readBufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := bytes.IndexByte(carry, '\n')
				if i < 0 {
					break
				}
				line := string(carry[:i])
				carry = carry[i+1:]

				terminal, cbErr := d.handleLine(line, callback)
				if cbErr != nil {
					return cbErr
				}
				if terminal {
					return nil
				}
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				// No trailing terminator: flush the carry-over as a line.
				if len(carry) > 0 {
					if _, cbErr := d.handleLine(string(carry), callback); cbErr != nil {
						return cbErr
					}
				}
				return nil
			}
			// Transport aborts during cancellation surface as read errors;
			// report the cancellation instead so callers can tell the two
			// apart.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

// handleLine parses one reconstructed line and dispatches any resulting
// event. Reports whether the event was terminal.
func (d *Reader) handleLine(line string, callback Callback) (bool, error) {
	event, err := d.parser.ParseLine(line)
	if err != nil {
		// Local recovery: the corrupt line is dropped, the stream goes on.
		d.logger.Warn("skipping unparseable stream line", "error", err)
		return false, nil
	}
	if event == nil {
		return false, nil
	}
	if err := callback(*event); err != nil {
		return false, err
	}
	return event.IsTerminal(), nil
}
