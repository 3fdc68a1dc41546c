// Copyright (C) 2026 Skerry AI (dev@skerry.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader delivers a fixed byte sequence in caller-chosen fragments,
// including empty ones, one fragment per Read call.
type chunkReader struct {
	chunks [][]byte
	index  int
}

func newChunkReader(chunks ...string) *chunkReader {
	r := &chunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[r.index])
	r.index++
	return n, nil
}

func collectEvents(t *testing.T, r io.Reader) []Event {
	t.Helper()
	reader := NewReader(NewParser(), nil)

	var events []Event
	err := reader.Read(context.Background(), r, func(e Event) error {
		events = append(events, e)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	return events
}

const sampleStream = "id: t:1\n" +
	"event: meta\n" +
	`data: {"trace_id":"t","model":"llama3.2","provider":"ollama"}` + "\n\n" +
	"id: t:2\n" +
	"event: chunk\n" +
	`data: {"text":"Hel"}` + "\n\n" +
	"id: t:3\n" +
	`data: {"text":"lo"}` + "\n\n"

// =============================================================================
// Fragment-boundary invariance
// =============================================================================

// Every fragmentation of the same bytes must reconstruct the same ordered
// event sequence, including splits inside a prefix token or mid-JSON.
func TestReader_FragmentBoundariesDoNotMatter(t *testing.T) {
	fragmentations := map[string][]string{
		"whole":          {sampleStream},
		"byte at a time": explode(sampleStream, 1),
		"three bytes":    explode(sampleStream, 3),
		"mid prefix": {
			"id: t:1\nev", "ent: meta\nda",
			`ta: {"trace_id":"t","mo`, `del":"llama3.2","provider":"ollama"}` + "\n\n",
			"id: t:2\nevent: chunk\n" + `data: {"text":"Hel"}` + "\n\n",
			"id: t:3\n" + `data: {"text":"lo"}` + "\n\n",
		},
		"with empty chunks": {
			"", "id: t:1\n", "", "event: meta\n",
			`data: {"trace_id":"t","model":"llama3.2","provider":"ollama"}` + "\n\n",
			"id: t:2\nevent: chunk\ndata: " + `{"text":"Hel"}` + "\n", "\n",
			"id: t:3\ndata: " + `{"text":"lo"}` + "\n\n", "",
		},
	}

	for name, chunks := range fragmentations {
		t.Run(name, func(t *testing.T) {
			events := collectEvents(t, newChunkReader(chunks...))

			if len(events) != 3 {
				t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
			}
			if events[0].Kind != EventMeta || events[0].ID != "t:1" {
				t.Errorf("event 0: %+v", events[0])
			}
			if events[1].Kind != EventChunk || events[1].Text != "Hel" || events[1].ID != "t:2" {
				t.Errorf("event 1: %+v", events[1])
			}
			if events[2].Kind != EventChunk || events[2].Text != "lo" || events[2].ID != "t:3" {
				t.Errorf("event 2: %+v", events[2])
			}
		})
	}
}

func explode(s string, size int) []string {
	var parts []string
	for len(s) > 0 {
		n := size
		if n > len(s) {
			n = len(s)
		}
		parts = append(parts, s[:n])
		s = s[n:]
	}
	return parts
}

func TestReader_SplitInsideMultibyteRune(t *testing.T) {
	stream := "data: " + `{"text":"héllo"}` + "\n\n"
	events := collectEvents(t, newChunkReader(explode(stream, 1)...))

	if len(events) != 1 || events[0].Text != "héllo" {
		t.Fatalf("multi-byte text mangled: %+v", events)
	}
}

// =============================================================================
// Stream end and recovery
// =============================================================================

func TestReader_FlushesCarryOverAtEOF(t *testing.T) {
	// No trailing newline after the final data line.
	events := collectEvents(t, strings.NewReader(`data: {"text":"tail"}`))

	if len(events) != 1 || events[0].Text != "tail" {
		t.Fatalf("expected flushed tail line, got %+v", events)
	}
}

func TestReader_MalformedPayloadDoesNotAbortStream(t *testing.T) {
	stream := `data: {"text":"a"}` + "\n" +
		`data: {"text": broken` + "\n" +
		`data: {"text":"b"}` + "\n"
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 2 {
		t.Fatalf("expected events around the corrupt line, got %+v", events)
	}
	if events[0].Text != "a" || events[1].Text != "b" {
		t.Errorf("wrong events survived: %+v", events)
	}
}

func TestReader_StopsAfterTerminalEvent(t *testing.T) {
	stream := `data: {"response":"done","sources":[],"model":"m","provider":"p"}` + "\n\n" +
		`data: {"text":"late"}` + "\n\n"
	events := collectEvents(t, strings.NewReader(stream))

	if len(events) != 1 || events[0].Kind != EventDone {
		t.Fatalf("reading must stop at the terminal event, got %+v", events)
	}
}

func TestReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := NewReader(NewParser(), nil)

	var seen int
	err := reader.Read(ctx, strings.NewReader(sampleStream), func(e Event) error {
		seen++
		cancel()
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if seen != 1 {
		t.Errorf("expected reading to stop after cancellation, saw %d events", seen)
	}
}

func TestReader_CallbackErrorStopsLoop(t *testing.T) {
	reader := NewReader(NewParser(), nil)
	boom := errors.New("boom")

	err := reader.Read(context.Background(), strings.NewReader(sampleStream), func(e Event) error {
		return boom
	})

	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestReader_TransportErrorPropagates(t *testing.T) {
	reader := NewReader(NewParser(), nil)

	err := reader.Read(context.Background(), failingReader{}, func(Event) error { return nil })
	if err == nil || err.Error() != "connection reset" {
		t.Fatalf("expected transport error, got %v", err)
	}
}
